package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	fieldScore           = "pontuacao"
	fieldStatus          = "status_recomendado"
	fieldFeedback        = "feedback"
	fieldStrengths       = "pontos_fortes"
	fieldImprovements    = "pontos_melhoria"
	fieldCriteria        = "criterios"
	fieldRecommendations = "recomendacoes_especificas"

	defaultFeedback = "Análise não disponível."
)

var (
	jsonFenceOpen = regexp.MustCompile("```json\\s*")
	fenceMarker   = regexp.MustCompile("```\\s*")
)

var requiredFields = []string{
	fieldScore,
	fieldStatus,
	fieldFeedback,
	fieldStrengths,
	fieldImprovements,
	fieldCriteria,
	fieldRecommendations,
}

// Normalizer turns raw model output into a well-formed AnalysisResult.
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer constructs a normalizer that logs repairs with the given logger.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "ai_normalizer").Logger()}
}

var defaultNormalizer = NewNormalizer(zerolog.Nop())

// Normalize parses raw model output with a silent normalizer.
func Normalize(raw string) AnalysisResult {
	return defaultNormalizer.Normalize(raw)
}

// Normalize never fails: malformed input yields the degraded parse result.
func (n *Normalizer) Normalize(raw string) AnalysisResult {
	cleaned := CleanJSONResponse(raw)

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()

	var payload map[string]interface{}
	err := decoder.Decode(&payload)
	if err == nil && payload == nil {
		err = fmt.Errorf("response is not a JSON object")
	}
	if err == nil {
		if _, extra := decoder.Token(); extra != io.EOF {
			err = fmt.Errorf("unexpected data after JSON object")
		}
	}
	if err != nil {
		normalizerRepairs.WithLabelValues("parse_failure").Inc()
		n.logger.Warn().Err(err).Str("response", truncate(raw, 500)).Msg("failed to parse model response")
		return DegradedParseResult(err)
	}

	if violations := schemaViolations(payload); len(violations) > 0 {
		normalizerRepairs.WithLabelValues("schema_violation").Inc()
		n.logger.Debug().Strs("violations", violations).Msg("model response repaired")
	}

	return validate(payload)
}

// CleanJSONResponse strips markdown fences and isolates the outermost JSON object.
func CleanJSONResponse(raw string) string {
	cleaned := jsonFenceOpen.ReplaceAllString(raw, "")
	cleaned = fenceMarker.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if strings.HasPrefix(cleaned, "{") && json.Valid([]byte(cleaned)) {
		return cleaned
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

// DegradedParseResult is returned when the model output is not parseable JSON.
func DegradedParseResult(err error) AnalysisResult {
	message := "unknown parse error"
	if err != nil {
		message = err.Error()
	}
	return AnalysisResult{
		Score:             0,
		RecommendedStatus: StatusNeedsReview,
		Feedback:          "Erro ao processar análise. Por favor, tente novamente.",
		Strengths:         []string{"Não foi possível analisar"},
		ImprovementAreas:  []string{"Reenviar solução para análise"},
		Criteria:          Criteria{},
		Recommendations:   []string{"Contatar suporte técnico"},
		Error:             message,
	}
}

func validate(payload map[string]interface{}) AnalysisResult {
	for _, field := range requiredFields {
		if _, ok := payload[field]; !ok {
			normalizerRepairs.WithLabelValues("missing_field").Inc()
		}
	}

	result := AnalysisResult{
		Score:             0,
		RecommendedStatus: StatusNeedsReview,
		Feedback:          defaultFeedback,
	}

	if score, ok := toFloat(payload[fieldScore]); ok {
		result.Score = clamp(score, 0, 100)
	}

	if status, ok := payload[fieldStatus].(string); ok {
		candidate := Status(strings.ToLower(strings.TrimSpace(status)))
		if candidate.Valid() {
			result.RecommendedStatus = candidate
		}
	}

	switch feedback := payload[fieldFeedback].(type) {
	case nil:
	case string:
		result.Feedback = feedback
	default:
		result.Feedback = fmt.Sprint(feedback)
	}

	result.Strengths = toStringSlice(payload[fieldStrengths])
	result.ImprovementAreas = toStringSlice(payload[fieldImprovements])
	result.Recommendations = toStringSlice(payload[fieldRecommendations])

	if criteria, ok := payload[fieldCriteria].(map[string]interface{}); ok {
		for _, key := range CriterionKeys {
			value, ok := toFloat(criteria[key])
			if !ok {
				continue
			}
			result.Criteria.set(key, clamp(value, 0, CriterionMax[key]))
		}
	}

	return result
}

func toFloat(value interface{}) (float64, bool) {
	var parsed float64
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		parsed = f
	case float64:
		parsed = v
	case int:
		parsed = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		parsed = f
	default:
		return 0, false
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func toStringSlice(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case string:
			out = append(out, v)
		case map[string]interface{}, []interface{}:
			encoded, err := json.Marshal(v)
			if err == nil {
				out = append(out, string(bytes.TrimSpace(encoded)))
			}
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
