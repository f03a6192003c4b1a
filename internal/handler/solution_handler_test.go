package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/nerus-go-api/internal/cache"
	"github.com/noah-isme/nerus-go-api/internal/config"
	"github.com/noah-isme/nerus-go-api/internal/handler"
	"github.com/noah-isme/nerus-go-api/internal/models"
	"github.com/noah-isme/nerus-go-api/internal/repository"
	"github.com/noah-isme/nerus-go-api/internal/router"
	"github.com/noah-isme/nerus-go-api/internal/service"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

const reviewJSON = `{
  "pontuacao": 81,
  "status_recomendado": "aprovada",
  "feedback": "Boa proposta.",
  "pontos_fortes": ["Clara"],
  "pontos_melhoria": ["Orçamento"],
  "criterios": {"adequacao_problema": 27, "qualidade_tecnica": 20, "criatividade": 15, "clareza": 12, "viabilidade": 7},
  "recomendacoes_especificas": ["Piloto de 30 dias"]
}`

type scriptedProvider struct {
	name      string
	available bool
	response  string
	calls     int32
}

func (p *scriptedProvider) Name() string {
	return p.name
}

func (p *scriptedProvider) Model() string {
	return p.name + "-test"
}

func (p *scriptedProvider) Available() bool {
	return p.available
}

func (p *scriptedProvider) Info() ai.ProviderInfo {
	return ai.ProviderInfo{Name: p.name, Model: p.Model()}
}

func (p *scriptedProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.response, nil
}

type testApp struct {
	app      *fiber.App
	db       *gorm.DB
	primary  *scriptedProvider
	problem  models.Problem
	analysis service.AnalysisService
}

// fakeJWT reads the identity from test headers instead of a signed token.
func fakeJWT(c *fiber.Ctx) error {
	if id := c.Get("X-Test-User"); id != "" {
		parsed, _ := strconv.ParseUint(id, 10, 64)
		c.Locals("user_id", uint(parsed))
	}
	if role := c.Get("X-Test-Role"); role != "" {
		c.Locals("user_role", role)
	}
	return c.Next()
}

func setupNerusApp(t *testing.T) testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Problem{}, &models.Solution{}, &models.SolutionReview{}))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	primary := &scriptedProvider{name: ai.ProviderGemini, available: true, response: reviewJSON}
	orchestrator := ai.NewOrchestrator(ai.NewRegistry(primary), ai.OrchestratorConfig{
		Primary:        ai.ProviderGemini,
		Secondary:      ai.ProviderGroq,
		AttemptTimeout: time.Second,
		Logger:         logger,
	})
	resultCache := cache.NewMemoryCache(cache.Options{TTL: time.Hour, Enabled: true}, logger)
	analysis := service.NewAnalysisService(orchestrator, resultCache, service.AnalysisServiceConfig{}, logger)

	problems := repository.NewProblemRepository(db)
	problem := models.Problem{CompanyID: 2, Title: "Evasão escolar", Description: "Alunos abandonam o curso no segundo semestre."}
	require.NoError(t, problems.Create(context.Background(), &problem))

	solutions := service.NewSolutionService(problems, repository.NewSolutionRepository(db), analysis, service.NewLogReviewNotifier(logger), validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "secret"}, router.Dependencies{
		SolutionHandler: handler.NewSolutionHandler(solutions, logger),
		AIAdminHandler:  handler.NewAIAdminHandler(analysis, validate, logger),
		Analysis:        analysis,
		JWTMiddleware:   fakeJWT,
	})

	return testApp{app: app, db: db, primary: primary, problem: problem, analysis: analysis}
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request, role string, userID uint) (int, map[string]interface{}) {
	t.Helper()
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func submitPath(problemID uint) string {
	return "/api/v1/problems/" + strconv.FormatUint(uint64(problemID), 10) + "/solutions"
}

func TestSolutionHandlerSubmitAndFetch(t *testing.T) {
	env := setupNerusApp(t)

	status, payload := doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "estudante", 5)
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, true, payload["success"])

	data := payload["data"].(map[string]interface{})
	analysis := data["analysis"].(map[string]interface{})
	require.Equal(t, 81.0, analysis["pontuacao"])
	require.Equal(t, "gemini", analysis["provider"])
	require.Equal(t, false, analysis["from_cache"])

	solution := data["solution"].(map[string]interface{})
	require.Equal(t, "aprovada", solution["status"])
	require.Equal(t, 81.0, solution["final_score"])
	solutionID := uint(solution["id"].(float64))

	status, payload = doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "estudante", 6)
	require.Equal(t, fiber.StatusCreated, status)
	analysis = payload["data"].(map[string]interface{})["analysis"].(map[string]interface{})
	require.Equal(t, true, analysis["from_cache"])
	require.Equal(t, int32(1), atomic.LoadInt32(&env.primary.calls))

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/solutions/"+strconv.FormatUint(uint64(solutionID), 10), nil)
	status, payload = doRequest(t, env.app, getReq, "estudante", 5)
	require.Equal(t, fiber.StatusOK, status)
	reviews := payload["data"].(map[string]interface{})["reviews"].([]interface{})
	require.Len(t, reviews, 1)

	getReq = httptest.NewRequest(http.MethodGet, "/api/v1/solutions/"+strconv.FormatUint(uint64(solutionID), 10), nil)
	status, _ = doRequest(t, env.app, getReq, "estudante", 6)
	require.Equal(t, fiber.StatusForbidden, status)

	getReq = httptest.NewRequest(http.MethodGet, "/api/v1/solutions/"+strconv.FormatUint(uint64(solutionID), 10), nil)
	status, _ = doRequest(t, env.app, getReq, "empresa", 2)
	require.Equal(t, fiber.StatusOK, status)
}

func TestSolutionHandlerGetRestrictsOtherUsers(t *testing.T) {
	env := setupNerusApp(t)

	status, payload := doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "estudante", 5)
	require.Equal(t, fiber.StatusCreated, status)
	solution := payload["data"].(map[string]interface{})["solution"].(map[string]interface{})
	path := "/api/v1/solutions/" + strconv.FormatUint(uint64(solution["id"].(float64)), 10)

	cases := []struct {
		name   string
		role   string
		userID uint
		want   int
	}{
		{name: "owner without role", role: "", userID: 5, want: fiber.StatusOK},
		{name: "other user without role", role: "", userID: 6, want: fiber.StatusForbidden},
		{name: "unknown role", role: "guest", userID: 6, want: fiber.StatusForbidden},
		{name: "company alias", role: "Company", userID: 9, want: fiber.StatusOK},
		{name: "admin", role: "admin", userID: 1, want: fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := doRequest(t, env.app, httptest.NewRequest(http.MethodGet, path, nil), tc.role, tc.userID)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestSolutionHandlerRejections(t *testing.T) {
	env := setupNerusApp(t)

	status, payload := doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"curta"}`), "estudante", 5)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "min", payload["details"].(map[string]interface{})["solutiontext"])

	status, _ = doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(4040),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "estudante", 5)
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "empresa", 2)
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "", 0)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doRequest(t, env.app, jsonRequest(http.MethodPost, "/api/v1/problems/abc/solutions", `{}`), "estudante", 5)
	require.Equal(t, fiber.StatusBadRequest, status)

	require.NoError(t, env.db.Model(&models.Problem{}).Where("id = ?", env.problem.ID).Update("status", models.ProblemStatusClosed).Error)
	status, _ = doRequest(t, env.app, jsonRequest(http.MethodPost, submitPath(env.problem.ID),
		`{"solution_text":"Mentoria entre veteranos e calouros."}`), "estudante", 5)
	require.Equal(t, fiber.StatusConflict, status)

	require.Zero(t, atomic.LoadInt32(&env.primary.calls))
}

func TestSolutionHandlerUpload(t *testing.T) {
	env := setupNerusApp(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("use_cache", "false"))
	part, err := writer.CreateFormFile("file", "proposta.md")
	require.NoError(t, err)
	_, err = part.Write([]byte("# Proposta\n\nMentoria entre veteranos e calouros."))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, submitPath(env.problem.ID)+"/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	status, payload := doRequest(t, env.app, req, "estudante", 5)
	require.Equal(t, fiber.StatusCreated, status)
	solution := payload["data"].(map[string]interface{})["solution"].(map[string]interface{})
	require.Contains(t, solution["solution_text"], "Mentoria")

	empty := &bytes.Buffer{}
	emptyWriter := multipart.NewWriter(empty)
	require.NoError(t, emptyWriter.Close())
	req = httptest.NewRequest(http.MethodPost, submitPath(env.problem.ID)+"/upload", empty)
	req.Header.Set("Content-Type", emptyWriter.FormDataContentType())

	status, _ = doRequest(t, env.app, req, "estudante", 5)
	require.Equal(t, fiber.StatusBadRequest, status)
}
