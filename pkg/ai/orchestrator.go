package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrchestratorConfig names the providers used for each attempt.
type OrchestratorConfig struct {
	Primary        string
	Secondary      string
	AttemptTimeout time.Duration
	Logger         zerolog.Logger
}

// Outcome is the raw answer of the provider that succeeded plus its provenance.
type Outcome struct {
	Raw            string
	Provider       string
	Model          string
	Elapsed        time.Duration
	UsedFallback   bool
	FallbackReason string
}

// Orchestrator runs an analysis against the primary provider and, when it
// fails, exactly once against the secondary provider.
type Orchestrator struct {
	registry  *Registry
	primary   string
	secondary string
	timeout   time.Duration
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the given registry.
func NewOrchestrator(registry *Registry, cfg OrchestratorConfig) *Orchestrator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Orchestrator{
		registry:  registry,
		primary:   normalizeName(cfg.Primary),
		secondary: normalizeName(cfg.Secondary),
		timeout:   cfg.AttemptTimeout,
		tracer:    otel.Tracer("github.com/noah-isme/nerus-go-api/pkg/ai/orchestrator"),
		logger:    cfg.Logger.With().Str("component", "ai_orchestrator").Logger(),
	}
}

// Primary returns the primary provider name.
func (o *Orchestrator) Primary() string { return o.primary }

// Secondary returns the fallback provider name, empty when none is configured.
func (o *Orchestrator) Secondary() string { return o.secondary }

// Registry exposes the provider registry.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Run tries the primary then the secondary provider. It returns an
// *ExhaustedError when no attempt succeeded.
func (o *Orchestrator) Run(parent context.Context, prompt string) (Outcome, error) {
	ctx, span := o.tracer.Start(parent, "ai.orchestrator.run", trace.WithAttributes(
		attribute.String("primary", o.primary),
		attribute.String("secondary", o.secondary),
	))
	defer span.End()

	var attempts []Attempt

	outcome, err := o.attempt(ctx, o.primary, prompt)
	if err == nil {
		span.SetAttributes(attribute.String("provider", outcome.Provider))
		return outcome, nil
	}
	primaryErr := err
	attempts = append(attempts, Attempt{Provider: o.primary, Err: primaryErr})
	o.logger.Warn().Err(primaryErr).Str("provider", o.primary).Str("kind", string(KindOf(primaryErr))).Msg("primary provider failed")

	if o.canFallback() {
		o.logger.Info().Str("provider", o.secondary).Msg("trying fallback provider")
		outcome, err = o.attempt(ctx, o.secondary, prompt)
		if err == nil {
			outcome.UsedFallback = true
			outcome.FallbackReason = primaryErr.Error()
			fallbacksTotal.WithLabelValues(o.primary, o.secondary).Inc()
			span.SetAttributes(attribute.String("provider", outcome.Provider), attribute.Bool("used_fallback", true))
			return outcome, nil
		}
		attempts = append(attempts, Attempt{Provider: o.secondary, Err: err})
		o.logger.Warn().Err(err).Str("provider", o.secondary).Str("kind", string(KindOf(err))).Msg("fallback provider failed")
	}

	exhausted := &ExhaustedError{Attempts: attempts}
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, exhausted.Error())
	o.logger.Error().Err(exhausted).Int("attempts", len(attempts)).Msg("all providers failed")
	return Outcome{}, exhausted
}

func (o *Orchestrator) canFallback() bool {
	if o.secondary == "" || o.secondary == o.primary {
		return false
	}
	_, ok := o.registry.Get(o.secondary)
	return ok
}

func (o *Orchestrator) attempt(ctx context.Context, name, prompt string) (Outcome, error) {
	provider, ok := o.registry.Get(name)
	if !ok {
		return Outcome{}, newProviderError(name, KindNotRegistered, 0, fmt.Errorf("provider %q not available", name))
	}
	if !provider.Available() {
		return Outcome{}, newProviderError(name, KindCredentials, 0, fmt.Errorf("provider %q not configured: %w", name, ErrMissingAPIKey))
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := provider.Analyze(ctx, prompt)
	elapsed := time.Since(start)
	if err != nil {
		var providerErr *ProviderError
		if !errors.As(err, &providerErr) {
			err = newProviderError(name, KindTransport, 0, err)
		}
		return Outcome{}, err
	}

	return Outcome{
		Raw:      raw,
		Provider: provider.Name(),
		Model:    provider.Model(),
		Elapsed:  elapsed,
	}, nil
}
