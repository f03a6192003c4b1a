package ai

import "context"

// Status is the review outcome recommended by the model.
type Status string

const (
	StatusApproved    Status = "aprovada"
	StatusRejected    Status = "reprovada"
	StatusNeedsReview Status = "revisao"
)

// Valid reports whether the status is one of the three accepted literals.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusNeedsReview:
		return true
	default:
		return false
	}
}

// NoProvider marks results that were not produced by any provider.
const NoProvider = "none"

// ProblemContext contains the problem attributes embedded in the analysis prompt.
type ProblemContext struct {
	ID             uint
	Title          string
	Description    string
	Area           string
	Difficulty     string
	CompanyContext string
	Objectives     string
	Requirements   string
}

// Criterion keys and their maximum sub-scores.
const (
	CriterionProblemFit       = "adequacao_problema"
	CriterionTechnicalQuality = "qualidade_tecnica"
	CriterionCreativity       = "criatividade"
	CriterionClarity          = "clareza"
	CriterionFeasibility      = "viabilidade"
)

// CriterionKeys lists the rubric criteria in prompt order.
var CriterionKeys = []string{
	CriterionProblemFit,
	CriterionTechnicalQuality,
	CriterionCreativity,
	CriterionClarity,
	CriterionFeasibility,
}

// CriterionMax holds the cap of every rubric criterion.
var CriterionMax = map[string]float64{
	CriterionProblemFit:       30,
	CriterionTechnicalQuality: 25,
	CriterionCreativity:       20,
	CriterionClarity:          15,
	CriterionFeasibility:      10,
}

// Criteria is the five-part weighted breakdown of the aggregate score.
type Criteria struct {
	ProblemFit       float64 `json:"adequacao_problema"`
	TechnicalQuality float64 `json:"qualidade_tecnica"`
	Creativity       float64 `json:"criatividade"`
	Clarity          float64 `json:"clareza"`
	Feasibility      float64 `json:"viabilidade"`
}

// Map returns the breakdown keyed by criterion name.
func (c Criteria) Map() map[string]float64 {
	return map[string]float64{
		CriterionProblemFit:       c.ProblemFit,
		CriterionTechnicalQuality: c.TechnicalQuality,
		CriterionCreativity:       c.Creativity,
		CriterionClarity:          c.Clarity,
		CriterionFeasibility:      c.Feasibility,
	}
}

func (c *Criteria) set(key string, value float64) {
	switch key {
	case CriterionProblemFit:
		c.ProblemFit = value
	case CriterionTechnicalQuality:
		c.TechnicalQuality = value
	case CriterionCreativity:
		c.Creativity = value
	case CriterionClarity:
		c.Clarity = value
	case CriterionFeasibility:
		c.Feasibility = value
	}
}

// AnalysisResult is the normalized review of a solution.
type AnalysisResult struct {
	Score             float64  `json:"pontuacao"`
	RecommendedStatus Status   `json:"status_recomendado"`
	Feedback          string   `json:"feedback"`
	Strengths         []string `json:"pontos_fortes"`
	ImprovementAreas  []string `json:"pontos_melhoria"`
	Criteria          Criteria `json:"criterios"`
	Recommendations   []string `json:"recomendacoes_especificas"`
	TimingMs          int64    `json:"tempo_analise_ms"`
	Provider          string   `json:"provider"`
	Model             string   `json:"model,omitempty"`
	UsedFallback      bool     `json:"used_fallback"`
	FallbackReason    string   `json:"fallback_reason,omitempty"`
	FromCache         bool     `json:"from_cache"`
	Error             string   `json:"erro,omitempty"`
}

// Clone returns a copy that shares no slices with the receiver.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Strengths = append([]string{}, r.Strengths...)
	out.ImprovementAreas = append([]string{}, r.ImprovementAreas...)
	out.Recommendations = append([]string{}, r.Recommendations...)
	return out
}

// PromptMode selects the prompt template used for an analysis.
type PromptMode string

const (
	PromptModeFull       PromptMode = "full"
	PromptModeSimplified PromptMode = "simplified"
)

// ProviderInfo describes a provider for administrative listings.
type ProviderInfo struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	FreeTier  bool   `json:"free_tier"`
	RateLimit string `json:"rate_limit"`
	Speed     string `json:"speed"`
}

// ProviderStatus is the availability snapshot of a registered provider.
type ProviderStatus struct {
	Available bool         `json:"available"`
	Info      ProviderInfo `json:"info"`
}

// Provider is an LLM backend able to answer an analysis prompt with raw text.
type Provider interface {
	Name() string
	Model() string
	Available() bool
	Analyze(ctx context.Context, prompt string) (string, error)
	Info() ProviderInfo
}
