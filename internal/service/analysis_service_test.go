package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nerus-go-api/internal/cache"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

type fakeProvider struct {
	name      string
	available bool
	response  string
	err       error
	delay     time.Duration
	calls     int32
	prompts   []string
	mu        sync.Mutex
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) Model() string {
	return p.name + "-model"
}

func (p *fakeProvider) Available() bool {
	return p.available
}

func (p *fakeProvider) Info() ai.ProviderInfo {
	return ai.ProviderInfo{Name: p.name, Model: p.Model()}
}

func (p *fakeProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *fakeProvider) callCount() int {
	return int(atomic.LoadInt32(&p.calls))
}

const approvedResponse = "```json\n" + `{
  "pontuacao": 72,
  "status_recomendado": "aprovada",
  "feedback": "Plano objetivo e viável.",
  "pontos_fortes": ["Objetivo", "Barato"],
  "pontos_melhoria": ["Detalhar etapas"],
  "criterios": {"adequacao_problema": 24, "qualidade_tecnica": 18, "criatividade": 12, "clareza": 11, "viabilidade": 7},
  "recomendacoes_especificas": ["Definir métricas"]
}` + "\n```"

func newAnalysisFixture(t *testing.T, primary, secondary *fakeProvider, resultCache cache.ResultCache, cfg AnalysisServiceConfig) AnalysisService {
	t.Helper()
	providers := []ai.Provider{}
	if primary != nil {
		providers = append(providers, primary)
	}
	if secondary != nil {
		providers = append(providers, secondary)
	}
	primaryName, secondaryName := "gemini", "groq"
	orchestrator := ai.NewOrchestrator(ai.NewRegistry(providers...), ai.OrchestratorConfig{
		Primary:   primaryName,
		Secondary: secondaryName,
		Logger:    zerolog.Nop(),
	})
	return NewAnalysisService(orchestrator, resultCache, cfg, zerolog.Nop())
}

func enabledCache() *cache.MemoryCache {
	return cache.NewMemoryCache(cache.Options{TTL: time.Hour, Enabled: true}, zerolog.Nop())
}

func TestAnalysisServiceExampleScenario(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: true, response: approvedResponse}
	svc := newAnalysisFixture(t, primary, nil, enabledCache(), AnalysisServiceConfig{})
	problem := ai.ProblemContext{ID: 7, Title: "Filas no hospital", Description: "Tempo de espera elevado"}

	first := svc.Analyze(ctx, problem, "short plan", DefaultAnalyzeOptions())

	require.Equal(t, 72.0, first.Score)
	require.Equal(t, ai.StatusApproved, first.RecommendedStatus)
	require.Equal(t, "gemini", first.Provider)
	require.Equal(t, "gemini-model", first.Model)
	require.False(t, first.UsedFallback)
	require.False(t, first.FromCache)
	require.Empty(t, first.Error)
	require.GreaterOrEqual(t, first.TimingMs, int64(0))
	require.Contains(t, primary.prompts[0], "short plan")
	require.Contains(t, primary.prompts[0], "Filas no hospital")

	second := svc.Analyze(ctx, problem, "short plan", DefaultAnalyzeOptions())
	require.True(t, second.FromCache)
	require.Equal(t, 1, primary.callCount())

	second.FromCache = false
	require.Equal(t, first, second)
}

func TestAnalysisServiceCacheBypass(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: true, response: approvedResponse}
	resultCache := enabledCache()
	svc := newAnalysisFixture(t, primary, nil, resultCache, AnalysisServiceConfig{})
	problem := ai.ProblemContext{ID: 3, Title: "t", Description: "d"}

	svc.Analyze(ctx, problem, "plan", DefaultAnalyzeOptions())
	bypass := svc.Analyze(ctx, problem, "plan", AnalyzeOptions{UseCache: false})

	require.False(t, bypass.FromCache)
	require.Equal(t, 2, primary.callCount())
	require.Equal(t, 1, svc.CacheStats(ctx).ValidEntries)

	cached := svc.Analyze(ctx, problem, "plan", DefaultAnalyzeOptions())
	require.True(t, cached.FromCache)
	require.Equal(t, 2, primary.callCount())
}

func TestAnalysisServiceDistinctFingerprints(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: true, response: approvedResponse}
	svc := newAnalysisFixture(t, primary, nil, enabledCache(), AnalysisServiceConfig{})

	svc.Analyze(ctx, ai.ProblemContext{ID: 1}, "plan", DefaultAnalyzeOptions())
	svc.Analyze(ctx, ai.ProblemContext{ID: 2}, "plan", DefaultAnalyzeOptions())
	svc.Analyze(ctx, ai.ProblemContext{ID: 1}, "other plan", DefaultAnalyzeOptions())

	require.Equal(t, 3, primary.callCount())
	require.Equal(t, 3, svc.CacheStats(ctx).TotalEntries)
}

func TestAnalysisServiceDisabledCache(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: true, response: approvedResponse}
	disabled := cache.NewMemoryCache(cache.Options{TTL: time.Hour, Enabled: false}, zerolog.Nop())
	svc := newAnalysisFixture(t, primary, nil, disabled, AnalysisServiceConfig{})

	svc.Analyze(ctx, ai.ProblemContext{ID: 1}, "plan", DefaultAnalyzeOptions())
	result := svc.Analyze(ctx, ai.ProblemContext{ID: 1}, "plan", DefaultAnalyzeOptions())

	require.False(t, result.FromCache)
	require.Equal(t, 2, primary.callCount())
	require.False(t, svc.CacheStats(ctx).CacheEnabled)
}

func TestAnalysisServiceFallbackProvenance(t *testing.T) {
	primary := &fakeProvider{name: "gemini", available: true, err: errors.New("quota exceeded")}
	secondary := &fakeProvider{name: "groq", available: true, response: `{"pontuacao": 45, "status_recomendado": "revisao"}`}
	svc := newAnalysisFixture(t, primary, secondary, enabledCache(), AnalysisServiceConfig{})

	result := svc.Analyze(context.Background(), ai.ProblemContext{ID: 9}, "plan", DefaultAnalyzeOptions())

	require.Equal(t, "groq", result.Provider)
	require.True(t, result.UsedFallback)
	require.Contains(t, result.FallbackReason, "quota exceeded")
	require.Equal(t, 45.0, result.Score)
	require.Equal(t, ai.StatusNeedsReview, result.RecommendedStatus)
}

func TestAnalysisServiceTimingCoversAnsweringProviderOnly(t *testing.T) {
	primary := &fakeProvider{name: "gemini", available: true, delay: 200 * time.Millisecond, err: errors.New("upstream down")}
	secondary := &fakeProvider{name: "groq", available: true, response: `{"pontuacao": 65, "status_recomendado": "aprovada"}`}
	svc := newAnalysisFixture(t, primary, secondary, enabledCache(), AnalysisServiceConfig{})

	result := svc.Analyze(context.Background(), ai.ProblemContext{ID: 11}, "plan", DefaultAnalyzeOptions())

	require.Equal(t, "groq", result.Provider)
	require.True(t, result.UsedFallback)
	require.GreaterOrEqual(t, result.TimingMs, int64(0))
	require.Less(t, result.TimingMs, int64(150))
}

func TestAnalysisServiceTotalFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: true, delay: 50 * time.Millisecond, err: errors.New("timeout")}
	secondary := &fakeProvider{name: "groq", available: true, err: errors.New("bad gateway")}
	svc := newAnalysisFixture(t, primary, secondary, enabledCache(), AnalysisServiceConfig{})

	result := svc.Analyze(ctx, ai.ProblemContext{ID: 5}, "plan", DefaultAnalyzeOptions())

	require.Equal(t, 0.0, result.Score)
	require.Equal(t, ai.StatusNeedsReview, result.RecommendedStatus)
	require.Equal(t, ai.NoProvider, result.Provider)
	require.False(t, result.UsedFallback)
	require.False(t, result.FromCache)
	require.Zero(t, result.TimingMs)
	require.Equal(t, []string{"Solução aguardando análise manual"}, result.Strengths)
	require.Equal(t, ai.Criteria{}, result.Criteria)
	require.Contains(t, result.Error, "timeout")
	require.Contains(t, result.Error, "bad gateway")
	require.Zero(t, svc.CacheStats(ctx).TotalEntries)

	svc.Analyze(ctx, ai.ProblemContext{ID: 5}, "plan", DefaultAnalyzeOptions())
	require.Equal(t, 2, primary.callCount())
}

func TestAnalysisServiceCachesUnparseableResult(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: true, response: "desculpe, não sei"}
	svc := newAnalysisFixture(t, primary, nil, enabledCache(), AnalysisServiceConfig{})

	first := svc.Analyze(ctx, ai.ProblemContext{ID: 4}, "plan", DefaultAnalyzeOptions())
	require.NotEmpty(t, first.Error)
	require.Equal(t, "gemini", first.Provider)

	second := svc.Analyze(ctx, ai.ProblemContext{ID: 4}, "plan", DefaultAnalyzeOptions())
	require.True(t, second.FromCache)
	require.Equal(t, 1, primary.callCount())
}

func TestAnalysisServiceSimplifiedMode(t *testing.T) {
	primary := &fakeProvider{name: "gemini", available: true, response: approvedResponse}
	svc := newAnalysisFixture(t, primary, nil, enabledCache(), AnalysisServiceConfig{})

	svc.Analyze(context.Background(), ai.ProblemContext{ID: 999, Title: "Energia", Description: "Cortes"}, "painéis", AnalyzeOptions{Mode: ai.PromptModeSimplified})

	require.Equal(t, ai.BuildSimplifiedPrompt("Energia", "Cortes", "painéis"), primary.prompts[0])
}

func TestAnalysisServiceDedupesInFlight(t *testing.T) {
	primary := &fakeProvider{name: "gemini", available: true, response: approvedResponse, delay: 100 * time.Millisecond}
	svc := newAnalysisFixture(t, primary, nil, enabledCache(), AnalysisServiceConfig{DedupeInFlight: true})

	var wg sync.WaitGroup
	results := make([]ai.AnalysisResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Analyze(context.Background(), ai.ProblemContext{ID: 7}, "short plan", DefaultAnalyzeOptions())
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, primary.callCount())
	for _, result := range results {
		require.Equal(t, 72.0, result.Score)
	}
}

func TestAnalysisServiceIntrospection(t *testing.T) {
	ctx := context.Background()
	primary := &fakeProvider{name: "gemini", available: false}
	secondary := &fakeProvider{name: "groq", available: true, response: approvedResponse}
	svc := newAnalysisFixture(t, primary, secondary, enabledCache(), AnalysisServiceConfig{})

	overview := svc.ProvidersOverview()
	require.Equal(t, "gemini", overview.Primary)
	require.Equal(t, "groq", overview.Fallback)
	require.Equal(t, 1, overview.TotalAvailable)
	require.Len(t, svc.Providers(), 2)

	health := svc.Health()
	require.Equal(t, "healthy", health.Status)
	require.False(t, health.PrimaryAvailable)

	svc.Analyze(ctx, ai.ProblemContext{ID: 1}, "plan", DefaultAnalyzeOptions())
	require.Equal(t, 1, svc.CacheStats(ctx).ValidEntries)
	require.NoError(t, svc.ClearCache(ctx))
	require.Zero(t, svc.CacheStats(ctx).TotalEntries)
}

func TestAnalysisServiceUnhealthyWithoutProviders(t *testing.T) {
	svc := newAnalysisFixture(t, &fakeProvider{name: "gemini"}, nil, nil, AnalysisServiceConfig{})
	require.Equal(t, "unhealthy", svc.Health().Status)
}
