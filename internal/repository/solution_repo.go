package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/nerus-go-api/internal/models"
)

// SolutionRepository defines data operations for solutions and their reviews.
type SolutionRepository interface {
	Create(ctx context.Context, solution *models.Solution) error
	Update(ctx context.Context, solution *models.Solution) error
	GetByID(ctx context.Context, id uint) (models.Solution, error)
	SaveReview(ctx context.Context, review *models.SolutionReview) error
	ListByProblem(ctx context.Context, problemID uint) ([]models.Solution, error)
}

type solutionRepository struct {
	db *gorm.DB
}

// NewSolutionRepository instantiates the repository.
func NewSolutionRepository(db *gorm.DB) SolutionRepository {
	return &solutionRepository{db: db}
}

func (r *solutionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Solution{}).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		})
}

func (r *solutionRepository) Create(ctx context.Context, solution *models.Solution) error {
	if solution.Status == "" {
		solution.Status = models.SolutionStatusPending
	}
	return r.db.WithContext(ctx).Omit("Problem", "Reviews").Create(solution).Error
}

func (r *solutionRepository) Update(ctx context.Context, solution *models.Solution) error {
	return r.db.WithContext(ctx).Omit("Problem", "Reviews").Save(solution).Error
}

func (r *solutionRepository) GetByID(ctx context.Context, id uint) (models.Solution, error) {
	var solution models.Solution
	if err := r.baseQuery(ctx).First(&solution, id).Error; err != nil {
		return models.Solution{}, err
	}
	return solution, nil
}

func (r *solutionRepository) SaveReview(ctx context.Context, review *models.SolutionReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *solutionRepository) ListByProblem(ctx context.Context, problemID uint) ([]models.Solution, error) {
	var solutions []models.Solution
	if err := r.baseQuery(ctx).
		Where("problem_id = ?", problemID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&solutions).Error; err != nil {
		return nil, err
	}
	return solutions, nil
}
