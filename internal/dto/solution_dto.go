package dto

import (
	"time"

	"github.com/noah-isme/nerus-go-api/internal/models"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// SolutionSubmitRequest is the JSON payload used to submit a solution.
type SolutionSubmitRequest struct {
	SolutionText string `json:"solution_text" validate:"required,min=10,max=20000"`
	UseCache     *bool  `json:"use_cache"`
}

// AnalyzeRequest drives an ad-hoc analysis outside of any stored problem.
type AnalyzeRequest struct {
	ProblemTitle       string `json:"problem_title" validate:"required,min=3,max=255"`
	ProblemDescription string `json:"problem_description" validate:"required,min=10"`
	SolutionText       string `json:"solution_text" validate:"required,min=10,max=20000"`
	Simplified         bool   `json:"simplified"`
}

// ReviewResponse serializes a stored analysis.
type ReviewResponse struct {
	ID              uint               `json:"id"`
	Score           float64            `json:"pontuacao"`
	Status          string             `json:"status_recomendado"`
	Feedback        string             `json:"feedback"`
	Strengths       []string           `json:"pontos_fortes"`
	Improvements    []string           `json:"pontos_melhoria"`
	Recommendations []string           `json:"recomendacoes_especificas"`
	Criteria        map[string]float64 `json:"criterios"`
	Provider        string             `json:"provider"`
	Model           string             `json:"model,omitempty"`
	UsedFallback    bool               `json:"used_fallback"`
	FallbackReason  string             `json:"fallback_reason,omitempty"`
	FromCache       bool               `json:"from_cache"`
	TimingMs        int64              `json:"tempo_analise_ms"`
	Error           string             `json:"erro,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// SolutionResponse is returned to API clients when viewing solutions.
type SolutionResponse struct {
	ID           uint             `json:"id"`
	ProblemID    uint             `json:"problem_id"`
	StudentID    uint             `json:"student_id"`
	SolutionText string           `json:"solution_text"`
	Status       string           `json:"status"`
	FinalScore   *float64         `json:"final_score"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Reviews      []ReviewResponse `json:"reviews"`
}

// SolutionSubmitResponse pairs the stored solution with the fresh analysis.
type SolutionSubmitResponse struct {
	Solution SolutionResponse  `json:"solution"`
	Analysis ai.AnalysisResult `json:"analysis"`
}

// NewReviewResponse converts a SolutionReview model into a DTO.
func NewReviewResponse(model models.SolutionReview) ReviewResponse {
	criteria := make(map[string]float64, len(ai.CriterionKeys))
	for _, key := range ai.CriterionKeys {
		criteria[key] = 0
		switch value := model.Criteria[key].(type) {
		case float64:
			criteria[key] = value
		case int:
			criteria[key] = float64(value)
		}
	}

	return ReviewResponse{
		ID:              model.ID,
		Score:           model.Score,
		Status:          model.Status,
		Feedback:        model.Feedback,
		Strengths:       model.StrengthList(),
		Improvements:    model.ImprovementList(),
		Recommendations: model.RecommendationList(),
		Criteria:        criteria,
		Provider:        model.Provider,
		Model:           model.Model,
		UsedFallback:    model.UsedFallback,
		FallbackReason:  model.FallbackReason,
		FromCache:       model.FromCache,
		TimingMs:        model.TimingMs,
		Error:           model.Error,
		CreatedAt:       model.CreatedAt,
	}
}

// NewSolutionResponse converts a Solution model into a DTO.
func NewSolutionResponse(model models.Solution) SolutionResponse {
	reviews := make([]ReviewResponse, 0, len(model.Reviews))
	for _, review := range model.Reviews {
		reviews = append(reviews, NewReviewResponse(review))
	}

	return SolutionResponse{
		ID:           model.ID,
		ProblemID:    model.ProblemID,
		StudentID:    model.StudentID,
		SolutionText: model.Text,
		Status:       model.Status,
		FinalScore:   model.FinalScore,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
		Reviews:      reviews,
	}
}
