package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/transport/httpserver/dto"
)

// StatusHandler reports per-source connection and circuit state.
type StatusHandler struct {
	sources *service.SourceService
	tracker *service.ConnectionTracker
	logger  *zap.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(sources *service.SourceService, tracker *service.ConnectionTracker, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		sources: sources,
		tracker: tracker,
		logger:  logger,
	}
}

// Status handles GET /api/v1/sources/status
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	sources, err := h.sources.List(c.Context())
	if err != nil {
		h.logger.Error("listing sources failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to list sources",
			Code:  "INTERNAL_ERROR",
		})
	}

	resp := dto.StatusResponse{
		TotalSources: len(sources),
		Sources:      make([]dto.SourceStatusResponse, len(sources)),
	}
	for i, src := range sources {
		resp.Sources[i] = dto.FromSourceStatus(src.Name, h.tracker.StatusFor(src.ID))
		if src.IsActive {
			resp.ActiveSources++
		}
	}

	return c.JSON(resp)
}
