package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/nerus-go-api/internal/config"
	"github.com/noah-isme/nerus-go-api/internal/service"
	"github.com/noah-isme/nerus-go-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	AI          *service.AIHealth `json:"ai,omitempty"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, analysis service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if analysis != nil {
			health := analysis.Health()
			payload.AI = &health
			if health.Status != "healthy" {
				payload.Status = "degraded"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
