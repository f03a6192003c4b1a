package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/nerus-go-api/internal/dto"
	"github.com/noah-isme/nerus-go-api/internal/middleware"
	"github.com/noah-isme/nerus-go-api/internal/models"
	"github.com/noah-isme/nerus-go-api/internal/repository"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// MaxSolutionFileBytes bounds uploaded solution documents.
const MaxSolutionFileBytes = 1 << 20

var (
	// ErrProblemNotFound indicates the referenced problem does not exist.
	ErrProblemNotFound = errors.New("problem not found")
	// ErrProblemClosed indicates the problem no longer accepts solutions.
	ErrProblemClosed = errors.New("problem is closed for new solutions")
	// ErrSolutionNotFound indicates a solution could not be found.
	ErrSolutionNotFound = errors.New("solution not found")
	// ErrSolutionEmpty indicates nothing was left after sanitization.
	ErrSolutionEmpty = errors.New("solution text is empty")
	// ErrSolutionFileInvalid indicates an upload that is not a readable text document.
	ErrSolutionFileInvalid = errors.New("solution file must be a plain text or markdown document")
	// ErrSolutionFileMissing indicates an upload request without a file.
	ErrSolutionFileMissing = errors.New("solution file is required")
	// ErrSolutionFileTooLarge indicates an upload above MaxSolutionFileBytes.
	ErrSolutionFileTooLarge = errors.New("solution file is too large")
)

// SolutionService orchestrates the submission and review of solutions.
type SolutionService interface {
	Submit(ctx context.Context, problemID, studentID uint, payload dto.SolutionSubmitRequest) (dto.SolutionSubmitResponse, error)
	SubmitFile(ctx context.Context, problemID, studentID uint, file *multipart.FileHeader, useCache *bool) (dto.SolutionSubmitResponse, error)
	Get(ctx context.Context, id uint) (dto.SolutionResponse, error)
}

type solutionService struct {
	problems  repository.ProblemRepository
	solutions repository.SolutionRepository
	analysis  AnalysisService
	notifier  ReviewNotifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSolutionService constructs a SolutionService instance.
func NewSolutionService(problems repository.ProblemRepository, solutions repository.SolutionRepository, analysis AnalysisService, notifier ReviewNotifier, validate *validator.Validate, logger zerolog.Logger) SolutionService {
	if notifier == nil {
		notifier = NewLogReviewNotifier(logger)
	}
	return &solutionService{
		problems:  problems,
		solutions: solutions,
		analysis:  analysis,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "solution_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/nerus-go-api/internal/service/solution"),
		now:       time.Now,
	}
}

func (s *solutionService) Submit(ctx context.Context, problemID, studentID uint, payload dto.SolutionSubmitRequest) (dto.SolutionSubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "solution.submit", trace.WithAttributes(
		attribute.Int("problem.id", int(problemID)),
		attribute.Int("student.id", int(studentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.SolutionSubmitResponse{}, err
	}

	text := s.sanitize(payload.SolutionText)
	if text == "" {
		return dto.SolutionSubmitResponse{}, ErrSolutionEmpty
	}

	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SolutionSubmitResponse{}, ErrProblemNotFound
		}
		span.RecordError(err)
		return dto.SolutionSubmitResponse{}, err
	}
	if !problem.AcceptsSolutions() {
		return dto.SolutionSubmitResponse{}, ErrProblemClosed
	}

	solution := models.Solution{
		ProblemID: problem.ID,
		StudentID: studentID,
		Text:      text,
		Status:    models.SolutionStatusPending,
	}
	if err := s.solutions.Create(ctx, &solution); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.SolutionSubmitResponse{}, err
	}

	opts := DefaultAnalyzeOptions()
	if payload.UseCache != nil {
		opts.UseCache = *payload.UseCache
	}
	result := s.analysis.Analyze(ctx, problem.ToContext(), text, opts)

	review := models.NewSolutionReview(solution.ID, result)
	if err := s.solutions.SaveReview(ctx, &review); err != nil {
		span.RecordError(err)
		return dto.SolutionSubmitResponse{}, fmt.Errorf("save review: %w", err)
	}

	manual := result.Provider == ai.NoProvider
	if !manual {
		score := result.Score
		solution.Status = string(result.RecommendedStatus)
		solution.FinalScore = &score
		if err := s.solutions.Update(ctx, &solution); err != nil {
			span.RecordError(err)
			return dto.SolutionSubmitResponse{}, fmt.Errorf("update solution: %w", err)
		}
	}

	s.notify(ctx, ReviewEvent{
		EventID:       newReviewEventID(),
		SolutionID:    solution.ID,
		ProblemID:     problem.ID,
		StudentID:     studentID,
		Score:         result.Score,
		Status:        string(result.RecommendedStatus),
		Provider:      result.Provider,
		UsedFallback:  result.UsedFallback,
		FromCache:     result.FromCache,
		ManualReview:  manual,
		OccurredAt:    s.now().UTC(),
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
	})

	stored, err := s.solutions.GetByID(ctx, solution.ID)
	if err != nil {
		return dto.SolutionSubmitResponse{}, err
	}

	s.logger.Info().
		Uint("solution_id", solution.ID).
		Uint("problem_id", problem.ID).
		Str("status", stored.Status).
		Bool("manual_review", manual).
		Msg("solution reviewed")

	return dto.SolutionSubmitResponse{
		Solution: dto.NewSolutionResponse(stored),
		Analysis: result,
	}, nil
}

func (s *solutionService) SubmitFile(ctx context.Context, problemID, studentID uint, file *multipart.FileHeader, useCache *bool) (dto.SolutionSubmitResponse, error) {
	if file == nil {
		return dto.SolutionSubmitResponse{}, ErrSolutionFileMissing
	}
	if file.Size > MaxSolutionFileBytes {
		return dto.SolutionSubmitResponse{}, fmt.Errorf("%w: limit is %d bytes", ErrSolutionFileTooLarge, MaxSolutionFileBytes)
	}

	text, err := readSolutionFile(file)
	if err != nil {
		return dto.SolutionSubmitResponse{}, err
	}

	return s.Submit(ctx, problemID, studentID, dto.SolutionSubmitRequest{SolutionText: text, UseCache: useCache})
}

func (s *solutionService) Get(ctx context.Context, id uint) (dto.SolutionResponse, error) {
	solution, err := s.solutions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SolutionResponse{}, ErrSolutionNotFound
		}
		return dto.SolutionResponse{}, err
	}
	return dto.NewSolutionResponse(solution), nil
}

func (s *solutionService) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *solutionService) notify(ctx context.Context, event ReviewEvent) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("solution_id", event.SolutionID).Msg("failed to publish review event")
	}
}

func readSolutionFile(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(reader, MaxSolutionFileBytes+1)); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if buf.Len() > MaxSolutionFileBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrSolutionFileTooLarge, MaxSolutionFileBytes)
	}

	mime := mimetype.Detect(buf.Bytes())
	if !mime.Is("text/plain") && !mime.Is("text/markdown") {
		return "", fmt.Errorf("%w: got %s", ErrSolutionFileInvalid, mime.String())
	}

	return buf.String(), nil
}
