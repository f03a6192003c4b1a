package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Generation parameters shared by every provider.
const (
	DefaultTemperature float32 = 0.3
	DefaultTopP        float32 = 0.95
	DefaultTopK                = 40
	DefaultMaxTokens           = 2048
	DefaultTimeout             = 30 * time.Second
)

// ProviderConfig configures a provider variant.
type ProviderConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	// Temperature falls back to DefaultTemperature when nil; zero is honoured.
	Temperature *float32
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

func (c ProviderConfig) withDefaults(model, baseURL string) ProviderConfig {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Model == "" {
		c.Model = model
	}
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == nil {
		temperature := DefaultTemperature
		c.Temperature = &temperature
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

func (c ProviderConfig) temperature() float32 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// instrumentation wraps a provider call with tracing, metrics and logging.
type instrumentation struct {
	name   string
	model  string
	tracer trace.Tracer
	logger zerolog.Logger
}

func newInstrumentation(name, model string, logger zerolog.Logger) instrumentation {
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}
	return instrumentation{
		name:   name,
		model:  model,
		tracer: otel.Tracer("github.com/noah-isme/nerus-go-api/pkg/ai/" + name),
		logger: logger.With().Str("component", "ai_provider").Str("provider", name).Str("model", model).Logger(),
	}
}

func (i instrumentation) run(parent context.Context, call func(ctx context.Context) (string, error)) (string, error) {
	ctx, span := i.tracer.Start(parent, "ai."+i.name+".analyze", trace.WithAttributes(
		attribute.String("provider", i.name),
		attribute.String("model", i.model),
	))
	defer span.End()

	i.logger.Debug().Msg("analysis started")
	start := time.Now()
	text, err := call(ctx)
	if err == nil && strings.TrimSpace(text) == "" {
		err = newProviderError(i.name, KindEmptyResponse, 0, errors.New("empty completion"))
	}
	duration := time.Since(start)
	providerDuration.WithLabelValues(i.name, i.model).Observe(duration.Seconds())

	if err != nil {
		observeFailure(i.name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Warn().Err(err).Int64("elapsed_ms", duration.Milliseconds()).Msg("analysis failed")
		return "", err
	}

	i.logger.Info().Int64("elapsed_ms", duration.Milliseconds()).Msg("analysis completed")
	return text, nil
}

// postJSON sends a JSON request and decodes a JSON response, classifying failures.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return newProviderError(provider, KindUpstream, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return newProviderError(provider, KindTransport, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return newProviderError(provider, KindTransport, 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return newProviderError(provider, KindTransport, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newProviderError(provider, kindForStatus(resp.StatusCode), resp.StatusCode, errors.New(truncate(strings.TrimSpace(string(respBody)), 300)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return newProviderError(provider, KindUpstream, resp.StatusCode, fmt.Errorf("parse response: %w", err))
	}
	return nil
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindCredentials
	default:
		return KindUpstream
	}
}

func missingCredentials(provider string) error {
	return newProviderError(provider, KindCredentials, 0, ErrMissingAPIKey)
}
