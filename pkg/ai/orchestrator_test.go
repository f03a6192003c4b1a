package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	model     string
	available bool
	response  string
	err       error
	delay     time.Duration
	calls     int32
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Model() string   { return s.model }
func (s *stubProvider) Available() bool { return s.available }
func (s *stubProvider) Info() ProviderInfo {
	return ProviderInfo{Name: s.name, Model: s.model}
}

func (s *stubProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubProvider) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func newTestOrchestrator(primary, secondary string, providers ...Provider) *Orchestrator {
	return NewOrchestrator(NewRegistry(providers...), OrchestratorConfig{
		Primary:   primary,
		Secondary: secondary,
		Logger:    zerolog.Nop(),
	})
}

func TestOrchestratorPrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "gemini", model: "g-1", available: true, response: `{"pontuacao": 80}`}
	secondary := &stubProvider{name: "groq", model: "l-3", available: true, response: `{}`}

	outcome, err := newTestOrchestrator("gemini", "groq", primary, secondary).Run(context.Background(), "prompt")

	require.NoError(t, err)
	require.Equal(t, `{"pontuacao": 80}`, outcome.Raw)
	require.Equal(t, "gemini", outcome.Provider)
	require.Equal(t, "g-1", outcome.Model)
	require.False(t, outcome.UsedFallback)
	require.Empty(t, outcome.FallbackReason)
	require.Equal(t, 1, primary.callCount())
	require.Zero(t, secondary.callCount())
}

func TestOrchestratorFallsBackOnce(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: true, err: newProviderError("gemini", KindRateLimited, 429, errors.New("quota"))}
	secondary := &stubProvider{name: "groq", model: "l-3", available: true, response: `{"pontuacao": 55}`}

	outcome, err := newTestOrchestrator("gemini", "groq", primary, secondary).Run(context.Background(), "prompt")

	require.NoError(t, err)
	require.Equal(t, "groq", outcome.Provider)
	require.True(t, outcome.UsedFallback)
	require.Contains(t, outcome.FallbackReason, "quota")
	require.Contains(t, outcome.FallbackReason, "rate_limited")
	require.Equal(t, 1, primary.callCount())
	require.Equal(t, 1, secondary.callCount())
}

func TestOrchestratorExhausted(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: true, err: errors.New("connection reset")}
	secondary := &stubProvider{name: "groq", available: true, err: newProviderError("groq", KindUpstream, 500, errors.New("boom"))}

	_, err := newTestOrchestrator("gemini", "groq", primary, secondary).Run(context.Background(), "prompt")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
	require.Equal(t, "gemini", exhausted.Attempts[0].Provider)
	require.Equal(t, KindTransport, KindOf(exhausted.Attempts[0].Err))
	require.Equal(t, "groq", exhausted.Attempts[1].Provider)
	require.True(t, IsKind(exhausted.Attempts[1].Err, KindUpstream))
	require.Contains(t, err.Error(), "connection reset")
	require.Contains(t, err.Error(), "boom")
	require.Equal(t, 1, primary.callCount())
	require.Equal(t, 1, secondary.callCount())
}

func TestOrchestratorSkipsUnregisteredSecondary(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: true, err: errors.New("down")}

	_, err := newTestOrchestrator("gemini", "groq", primary).Run(context.Background(), "prompt")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 1)
}

func TestOrchestratorSkipsSecondaryEqualToPrimary(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: true, err: errors.New("down")}

	_, err := newTestOrchestrator("gemini", "Gemini", primary).Run(context.Background(), "prompt")

	require.Error(t, err)
	require.Equal(t, 1, primary.callCount())
}

func TestOrchestratorUnavailablePrimaryFallsBack(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: false}
	secondary := &stubProvider{name: "groq", available: true, response: `{}`}

	outcome, err := newTestOrchestrator("gemini", "groq", primary, secondary).Run(context.Background(), "prompt")

	require.NoError(t, err)
	require.True(t, outcome.UsedFallback)
	require.Contains(t, outcome.FallbackReason, ErrMissingAPIKey.Error())
	require.Zero(t, primary.callCount())
}

func TestOrchestratorUnregisteredPrimary(t *testing.T) {
	secondary := &stubProvider{name: "groq", available: true, response: `{}`}

	outcome, err := newTestOrchestrator("openai", "groq", secondary).Run(context.Background(), "prompt")

	require.NoError(t, err)
	require.True(t, outcome.UsedFallback)
	require.Contains(t, outcome.FallbackReason, "not_registered")
}

func TestOrchestratorAttemptTimeout(t *testing.T) {
	slow := &stubProvider{name: "gemini", available: true, response: `{}`, delay: time.Second}
	fast := &stubProvider{name: "groq", available: true, response: `{"pontuacao": 1}`}

	orchestrator := NewOrchestrator(NewRegistry(slow, fast), OrchestratorConfig{
		Primary:        "gemini",
		Secondary:      "groq",
		AttemptTimeout: 20 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})

	outcome, err := orchestrator.Run(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "groq", outcome.Provider)
	require.Contains(t, outcome.FallbackReason, context.DeadlineExceeded.Error())
}

func TestRegistryStatuses(t *testing.T) {
	registry := NewRegistry(
		&stubProvider{name: "Gemini", available: true},
		&stubProvider{name: "groq"},
	)
	registry.Register(nil)

	require.Equal(t, []string{"gemini", "groq"}, registry.Names())
	statuses := registry.Statuses()
	require.True(t, statuses["gemini"].Available)
	require.False(t, statuses["groq"].Available)

	_, ok := registry.Get(" GROQ ")
	require.True(t, ok)
}
