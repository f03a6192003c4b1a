package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/internal/dto"
	"github.com/noah-isme/nerus-go-api/internal/service"
	"github.com/noah-isme/nerus-go-api/internal/utils"
	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// SyntheticProblemID identifies ad-hoc analyses that have no stored problem.
const SyntheticProblemID = 999

// AIAdminHandler exposes introspection and maintenance endpoints of the analysis core.
type AIAdminHandler struct {
	analysis  service.AnalysisService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAIAdminHandler builds the handler.
func NewAIAdminHandler(analysis service.AnalysisService, validate *validator.Validate, logger zerolog.Logger) *AIAdminHandler {
	return &AIAdminHandler{
		analysis:  analysis,
		validator: validate,
		logger:    logger.With().Str("component", "ai_admin_handler").Logger(),
	}
}

// Register attaches the admin routes to the provided router group.
func (h *AIAdminHandler) Register(router fiber.Router) {
	router.Get("/providers", h.providers)
	router.Get("/cache/stats", h.cacheStats)
	router.Post("/cache/clear", h.clearCache)
	router.Post("/analyze", h.analyze)
}

// Health reports provider availability and does not require a role.
func (h *AIAdminHandler) Health(c *fiber.Ctx) error {
	health := h.analysis.Health()
	status := fiber.StatusOK
	if health.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return utils.SendSuccessWithStatus(c, status, "ai health", health)
}

func (h *AIAdminHandler) providers(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "providers retrieved", h.analysis.ProvidersOverview())
}

func (h *AIAdminHandler) cacheStats(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "cache stats retrieved", h.analysis.CacheStats(c.UserContext()))
}

func (h *AIAdminHandler) clearCache(c *fiber.Ctx) error {
	if err := h.analysis.ClearCache(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to clear analysis cache")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to clear cache")
	}

	requestLogger(h.logger, c).Info().Uint("user_id", userIDFromContext(c)).Msg("analysis cache cleared")
	return utils.SendSuccess(c, "cache cleared", h.analysis.CacheStats(c.UserContext()))
}

func (h *AIAdminHandler) analyze(c *fiber.Ctx) error {
	var payload dto.AnalyzeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid analysis payload", validationDetails(err))
	}

	opts := service.AnalyzeOptions{UseCache: false, Mode: ai.PromptModeFull}
	if payload.Simplified {
		opts.Mode = ai.PromptModeSimplified
	}

	problem := ai.ProblemContext{
		ID:          SyntheticProblemID,
		Title:       payload.ProblemTitle,
		Description: payload.ProblemDescription,
	}

	result := h.analysis.Analyze(analysisContext(c), problem, payload.SolutionText, opts)
	return utils.SendSuccess(c, "analysis completed", result)
}
