package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/nerus-go-api/internal/models"
)

// ProblemRepository defines data operations for problems.
type ProblemRepository interface {
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	Create(ctx context.Context, problem *models.Problem) error
}

type problemRepository struct {
	db *gorm.DB
}

// NewProblemRepository instantiates the repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).First(&problem, id).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	if problem.Status == "" {
		problem.Status = models.ProblemStatusActive
	}
	return r.db.WithContext(ctx).Create(problem).Error
}
