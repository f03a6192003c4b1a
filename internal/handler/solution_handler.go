package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/internal/dto"
	"github.com/noah-isme/nerus-go-api/internal/middleware"
	"github.com/noah-isme/nerus-go-api/internal/service"
	"github.com/noah-isme/nerus-go-api/internal/utils"
)

// SolutionHandler exposes solution submission and retrieval endpoints.
type SolutionHandler struct {
	service service.SolutionService
	logger  zerolog.Logger
}

// NewSolutionHandler builds a solution handler instance.
func NewSolutionHandler(service service.SolutionService, logger zerolog.Logger) *SolutionHandler {
	return &SolutionHandler{
		service: service,
		logger:  logger.With().Str("component", "solution_handler").Logger(),
	}
}

// RegisterSubmissions attaches the submission routes under a problem group.
func (h *SolutionHandler) RegisterSubmissions(router fiber.Router, limiter fiber.Handler) {
	handlers := func(next fiber.Handler) []fiber.Handler {
		next = middleware.WithAuth(next, middleware.AuthOptions{Role: middleware.AuthRoleStudent})
		if limiter == nil {
			return []fiber.Handler{next}
		}
		return []fiber.Handler{limiter, next}
	}

	router.Post("/:id/solutions", handlers(h.submit)...)
	router.Post("/:id/solutions/upload", handlers(h.upload)...)
}

// Register attaches the read routes to the provided router group.
func (h *SolutionHandler) Register(router fiber.Router) {
	router.Get("/:id", middleware.WithAuth(h.get, middleware.AuthOptions{RequireUser: true}))
}

func (h *SolutionHandler) submit(c *fiber.Ctx) error {
	problemID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SolutionSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Submit(analysisContext(c), problemID, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "solution analyzed", result)
}

func (h *SolutionHandler) upload(c *fiber.Ctx) error {
	problemID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	useCache, err := parseOptionalBool(c.FormValue("use_cache"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid use_cache")
	}

	result, err := h.service.SubmitFile(analysisContext(c), problemID, userIDFromContext(c), file, useCache)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "solution analyzed", result)
}

func (h *SolutionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	solution, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	if !canReadSolution(c, solution.StudentID) {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	return utils.SendSuccess(c, "solution retrieved", solution)
}

// canReadSolution lets companies and admins read any solution and everyone
// else only their own.
func canReadSolution(c *fiber.Ctx, ownerID uint) bool {
	switch userRoleFromContext(c) {
	case middleware.AuthRoleCompany, middleware.AuthRoleAdmin:
		return true
	}
	userID := userIDFromContext(c)
	return userID != 0 && userID == ownerID
}

func (h *SolutionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid solution payload", validationDetails(err))
	case errors.Is(err, service.ErrSolutionEmpty),
		errors.Is(err, service.ErrSolutionFileInvalid),
		errors.Is(err, service.ErrSolutionFileMissing):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSolutionFileTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrProblemNotFound), errors.Is(err, service.ErrSolutionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrProblemClosed):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
