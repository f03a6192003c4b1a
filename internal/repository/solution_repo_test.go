package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/nerus-go-api/internal/models"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Problem{}, &models.Solution{}, &models.SolutionReview{}))
	return db
}

func seedProblem(t *testing.T, db *gorm.DB) models.Problem {
	t.Helper()
	problem := models.Problem{
		CompanyID:   3,
		Title:       "Filas no hospital",
		Description: "Pacientes esperam horas pela triagem.",
		Area:        "saude",
	}
	require.NoError(t, NewProblemRepository(db).Create(context.Background(), &problem))
	return problem
}

func TestProblemRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)
	problem := seedProblem(t, db)

	require.NotZero(t, problem.ID)
	require.Equal(t, models.ProblemStatusActive, problem.Status)

	stored, err := repo.GetByID(context.Background(), problem.ID)
	require.NoError(t, err)
	require.Equal(t, "Filas no hospital", stored.Title)
	require.True(t, stored.AcceptsSolutions())

	ctx := stored.ToContext()
	require.Equal(t, problem.ID, ctx.ID)
	require.Equal(t, "saude", ctx.Area)

	_, err = repo.GetByID(context.Background(), 9999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSolutionRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSolutionRepository(db)
	problem := seedProblem(t, db)
	ctx := context.Background()

	solution := models.Solution{ProblemID: problem.ID, StudentID: 11, Text: "Triagem por SMS"}
	require.NoError(t, repo.Create(ctx, &solution))
	require.NotZero(t, solution.ID)
	require.Equal(t, models.SolutionStatusPending, solution.Status)

	result := ai.AnalysisResult{
		Score:             72,
		RecommendedStatus: ai.StatusApproved,
		Feedback:          "Bom plano.",
		Strengths:         []string{"simples"},
		Criteria:          ai.Criteria{ProblemFit: 25, Clarity: 12},
		Provider:          "gemini",
		Model:             "gemini-1.5-flash",
		TimingMs:          1200,
	}
	review := models.NewSolutionReview(solution.ID, result)
	require.NoError(t, repo.SaveReview(ctx, &review))

	score := result.Score
	solution.Status = models.SolutionStatusApproved
	solution.FinalScore = &score
	require.NoError(t, repo.Update(ctx, &solution))

	stored, err := repo.GetByID(ctx, solution.ID)
	require.NoError(t, err)
	require.Equal(t, models.SolutionStatusApproved, stored.Status)
	require.NotNil(t, stored.FinalScore)
	require.Equal(t, 72.0, *stored.FinalScore)
	require.Len(t, stored.Reviews, 1)

	storedReview := stored.Reviews[0]
	require.Equal(t, "aprovada", storedReview.Status)
	require.Equal(t, []string{"simples"}, storedReview.StrengthList())
	require.Equal(t, []string{}, storedReview.ImprovementList())
	require.EqualValues(t, 25, storedReview.Criteria[ai.CriterionProblemFit])
	require.EqualValues(t, 0, storedReview.Criteria[ai.CriterionFeasibility])
	require.Equal(t, "gemini", storedReview.Provider)
}

func TestSolutionRepositoryListByProblem(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSolutionRepository(db)
	problem := seedProblem(t, db)
	other := seedProblem(t, db)
	ctx := context.Background()

	for _, text := range []string{"primeira", "segunda"} {
		solution := models.Solution{ProblemID: problem.ID, StudentID: 1, Text: text}
		require.NoError(t, repo.Create(ctx, &solution))
	}
	require.NoError(t, repo.Create(ctx, &models.Solution{ProblemID: other.ID, StudentID: 2, Text: "outra"}))

	solutions, err := repo.ListByProblem(ctx, problem.ID)
	require.NoError(t, err)
	require.Len(t, solutions, 2)
	require.Equal(t, "segunda", solutions[0].Text)
}
