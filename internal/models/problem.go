package models

import (
	"time"

	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// Problem is a real business problem published by a company.
type Problem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CompanyID      uint      `gorm:"index" json:"company_id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	Area           string    `gorm:"size:64" json:"area"`
	Difficulty     string    `gorm:"size:32" json:"difficulty"`
	CompanyContext string    `gorm:"type:text" json:"company_context"`
	Objectives     string    `gorm:"type:text" json:"objectives"`
	Requirements   string    `gorm:"type:text" json:"requirements"`
	Status         string    `gorm:"size:32;not null;default:ativo" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	// ProblemStatusActive marks a problem open for solutions.
	ProblemStatusActive = "ativo"
	// ProblemStatusClosed marks a problem that no longer accepts solutions.
	ProblemStatusClosed = "fechado"
)

// AcceptsSolutions reports whether students may still submit solutions.
func (p Problem) AcceptsSolutions() bool {
	return p.Status == "" || p.Status == ProblemStatusActive
}

// ToContext projects the problem onto the fields used by the analysis prompt.
func (p Problem) ToContext() ai.ProblemContext {
	return ai.ProblemContext{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		Area:           p.Area,
		Difficulty:     p.Difficulty,
		CompanyContext: p.CompanyContext,
		Objectives:     p.Objectives,
		Requirements:   p.Requirements,
	}
}
