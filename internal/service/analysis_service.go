package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/nerus-go-api/internal/cache"
	"github.com/noah-isme/nerus-go-api/internal/observability"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// AnalyzeOptions tunes a single analysis call.
type AnalyzeOptions struct {
	UseCache bool
	Mode     ai.PromptMode
}

// DefaultAnalyzeOptions enables caching with the full prompt.
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{UseCache: true, Mode: ai.PromptModeFull}
}

// ProvidersOverview lists registered providers with the configured pair.
type ProvidersOverview struct {
	Providers      map[string]ai.ProviderStatus `json:"providers"`
	Primary        string                       `json:"primary"`
	Fallback       string                       `json:"fallback"`
	TotalAvailable int                          `json:"total_available"`
}

// AIHealth summarises whether analyses can currently be served.
type AIHealth struct {
	Status           string `json:"status"`
	Primary          string `json:"primary_provider"`
	PrimaryAvailable bool   `json:"primary_available"`
	Fallback         string `json:"fallback_provider,omitempty"`
	TotalAvailable   int    `json:"total_available"`
}

// AnalysisService is the single entry point for solution analyses.
type AnalysisService interface {
	Analyze(ctx context.Context, problem ai.ProblemContext, solution string, opts AnalyzeOptions) ai.AnalysisResult
	Providers() map[string]ai.ProviderStatus
	ProvidersOverview() ProvidersOverview
	CacheStats(ctx context.Context) cache.Stats
	ClearCache(ctx context.Context) error
	Health() AIHealth
}

// AnalysisServiceConfig carries the optional facade settings.
type AnalysisServiceConfig struct {
	DedupeInFlight bool
}

type analysisService struct {
	orchestrator *ai.Orchestrator
	cache        cache.ResultCache
	normalizer   *ai.Normalizer
	dedupe       bool
	inflight     singleflight.Group
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewAnalysisService wires the orchestrator, normalizer and cache together.
func NewAnalysisService(orchestrator *ai.Orchestrator, resultCache cache.ResultCache, cfg AnalysisServiceConfig, logger zerolog.Logger) AnalysisService {
	if resultCache == nil {
		resultCache = cache.NewMemoryCache(cache.Options{Enabled: false}, logger)
	}
	return &analysisService{
		orchestrator: orchestrator,
		cache:        resultCache,
		normalizer:   ai.NewNormalizer(logger),
		dedupe:       cfg.DedupeInFlight,
		logger:       logger.With().Str("component", "analysis_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/nerus-go-api/internal/service/analysis"),
	}
}

// Analyze never fails: provider exhaustion yields a degraded result that asks
// for a manual review.
func (s *analysisService) Analyze(ctx context.Context, problem ai.ProblemContext, solution string, opts AnalyzeOptions) ai.AnalysisResult {
	ctx, span := s.tracer.Start(ctx, "service.analysis.analyze", trace.WithAttributes(
		attribute.Int("problem.id", int(problem.ID)),
		attribute.Bool("analysis.use_cache", opts.UseCache),
	))
	defer span.End()

	caching := opts.UseCache && s.cache.Enabled()
	var key string
	if caching {
		key = cache.Fingerprint(problem.ID, solution)
		if cached, ok := s.cache.Get(ctx, key); ok {
			observability.AnalysisCacheLookups().WithLabelValues("hit").Inc()
			s.logger.Debug().Uint("problem_id", problem.ID).Str("provider", cached.Provider).Msg("analysis cache hit")
			span.SetAttributes(attribute.Bool("analysis.from_cache", true))
			cached.FromCache = true
			return cached
		}
		observability.AnalysisCacheLookups().WithLabelValues("miss").Inc()
	}

	if !s.dedupe || !caching {
		return s.analyzeFresh(ctx, problem, solution, opts.Mode, key)
	}

	value, _, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.analyzeFresh(ctx, problem, solution, opts.Mode, key), nil
	})
	if shared {
		s.logger.Debug().Uint("problem_id", problem.ID).Msg("joined in-flight analysis")
	}
	return value.(ai.AnalysisResult).Clone()
}

func (s *analysisService) analyzeFresh(ctx context.Context, problem ai.ProblemContext, solution string, mode ai.PromptMode, key string) ai.AnalysisResult {
	prompt := ai.BuildPrompt(mode, problem, solution)

	outcome, err := s.orchestrator.Run(ctx, prompt)
	if err != nil {
		observability.AnalysisOutcomes().WithLabelValues("exhausted", ai.NoProvider).Inc()
		s.logger.Error().Err(err).Uint("problem_id", problem.ID).Msg("analysis unavailable, manual review required")
		return ExhaustedResult(err)
	}

	result := s.normalizer.Normalize(outcome.Raw)
	result.TimingMs = outcome.Elapsed.Milliseconds()
	result.Provider = outcome.Provider
	result.Model = outcome.Model
	result.UsedFallback = outcome.UsedFallback
	result.FallbackReason = outcome.FallbackReason
	result.FromCache = false

	label := "success"
	switch {
	case result.Error != "":
		label = "unparseable"
	case outcome.UsedFallback:
		label = "fallback"
	}
	observability.AnalysisOutcomes().WithLabelValues(label, outcome.Provider).Inc()

	s.logger.Info().
		Uint("problem_id", problem.ID).
		Str("provider", result.Provider).
		Bool("used_fallback", result.UsedFallback).
		Float64("score", result.Score).
		Str("status", string(result.RecommendedStatus)).
		Int64("elapsed_ms", result.TimingMs).
		Msg("analysis completed")

	if key != "" {
		s.cache.Put(ctx, key, result)
	}
	return result
}

// ExhaustedResult is returned when no provider could answer.
func ExhaustedResult(err error) ai.AnalysisResult {
	message := "no provider available"
	if err != nil {
		message = err.Error()
	}
	return ai.AnalysisResult{
		Score:             0,
		RecommendedStatus: ai.StatusNeedsReview,
		Feedback:          "Não foi possível analisar a solução automaticamente. A empresa analisará manualmente.",
		Strengths:         []string{"Solução aguardando análise manual"},
		ImprovementAreas:  []string{"Análise automática temporariamente indisponível"},
		Criteria:          ai.Criteria{},
		Recommendations:   []string{"Aguardar avaliação da empresa"},
		Provider:          ai.NoProvider,
		Error:             message,
	}
}

func (s *analysisService) Providers() map[string]ai.ProviderStatus {
	return s.orchestrator.Registry().Statuses()
}

func (s *analysisService) ProvidersOverview() ProvidersOverview {
	statuses := s.Providers()
	available := 0
	for _, status := range statuses {
		if status.Available {
			available++
		}
	}
	return ProvidersOverview{
		Providers:      statuses,
		Primary:        s.orchestrator.Primary(),
		Fallback:       s.orchestrator.Secondary(),
		TotalAvailable: available,
	}
}

func (s *analysisService) CacheStats(ctx context.Context) cache.Stats {
	return s.cache.Stats(ctx)
}

func (s *analysisService) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear analysis cache: %w", err)
	}
	return nil
}

func (s *analysisService) Health() AIHealth {
	overview := s.ProvidersOverview()
	health := AIHealth{
		Status:         "unhealthy",
		Primary:        overview.Primary,
		Fallback:       overview.Fallback,
		TotalAvailable: overview.TotalAvailable,
	}
	if status, ok := overview.Providers[overview.Primary]; ok {
		health.PrimaryAvailable = status.Available
	}
	if overview.TotalAvailable > 0 {
		health.Status = "healthy"
	}
	return health
}
