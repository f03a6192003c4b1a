package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// Solution is a student's answer to a problem.
type Solution struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	ProblemID  uint             `gorm:"not null;index" json:"problem_id"`
	StudentID  uint             `gorm:"not null;index" json:"student_id"`
	Text       string           `gorm:"type:text;not null" json:"solution_text"`
	Status     string           `gorm:"size:32;not null" json:"status"`
	FinalScore *float64         `json:"final_score"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Problem    Problem          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Reviews    []SolutionReview `gorm:"foreignKey:SolutionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"reviews,omitempty"`
}

const (
	// SolutionStatusPending indicates the solution is waiting for an analysis.
	SolutionStatusPending = "em_analise"
	// SolutionStatusApproved mirrors the aprovada recommendation.
	SolutionStatusApproved = "aprovada"
	// SolutionStatusRejected mirrors the reprovada recommendation.
	SolutionStatusRejected = "reprovada"
	// SolutionStatusReview mirrors the revisao recommendation.
	SolutionStatusReview = "revisao"
)

// SolutionReview stores one automated analysis of a solution.
type SolutionReview struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	SolutionID      uint              `gorm:"not null;index" json:"solution_id"`
	Score           float64           `json:"pontuacao"`
	Status          string            `gorm:"size:32;not null" json:"status_recomendado"`
	Feedback        string            `gorm:"type:text" json:"feedback"`
	Strengths       datatypes.JSON    `gorm:"type:json" json:"pontos_fortes"`
	Improvements    datatypes.JSON    `gorm:"type:json" json:"pontos_melhoria"`
	Recommendations datatypes.JSON    `gorm:"type:json" json:"recomendacoes_especificas"`
	Criteria        datatypes.JSONMap `gorm:"type:json" json:"criterios"`
	Provider        string            `gorm:"size:64" json:"provider"`
	Model           string            `gorm:"size:128" json:"model"`
	UsedFallback    bool              `json:"used_fallback"`
	FallbackReason  string            `gorm:"type:text" json:"fallback_reason,omitempty"`
	FromCache       bool              `json:"from_cache"`
	TimingMs        int64             `json:"tempo_analise_ms"`
	Error           string            `gorm:"type:text" json:"erro,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewSolutionReview converts an analysis result into its persisted form.
func NewSolutionReview(solutionID uint, result ai.AnalysisResult) SolutionReview {
	criteria := datatypes.JSONMap{}
	for key, value := range result.Criteria.Map() {
		criteria[key] = value
	}

	return SolutionReview{
		SolutionID:      solutionID,
		Score:           result.Score,
		Status:          string(result.RecommendedStatus),
		Feedback:        result.Feedback,
		Strengths:       encodeList(result.Strengths),
		Improvements:    encodeList(result.ImprovementAreas),
		Recommendations: encodeList(result.Recommendations),
		Criteria:        criteria,
		Provider:        result.Provider,
		Model:           result.Model,
		UsedFallback:    result.UsedFallback,
		FallbackReason:  result.FallbackReason,
		FromCache:       result.FromCache,
		TimingMs:        result.TimingMs,
		Error:           result.Error,
	}
}

// StrengthList decodes the stored strengths.
func (r SolutionReview) StrengthList() []string { return decodeList(r.Strengths) }

// ImprovementList decodes the stored improvement areas.
func (r SolutionReview) ImprovementList() []string { return decodeList(r.Improvements) }

// RecommendationList decodes the stored recommendations.
func (r SolutionReview) RecommendationList() []string { return decodeList(r.Recommendations) }

func encodeList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func decodeList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	return items
}
