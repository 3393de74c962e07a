package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/transport/httpserver/dto"
)

// DashboardHandler renders the HTML status page.
type DashboardHandler struct {
	sources *service.SourceService
	tracker *service.ConnectionTracker
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(sources *service.SourceService, tracker *service.ConnectionTracker, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		sources: sources,
		tracker: tracker,
		logger:  logger,
	}
}

// Render handles GET /dashboard
// Renders the source status page using Fiber's template engine.
func (h *DashboardHandler) Render(c *fiber.Ctx) error {
	sources, err := h.sources.List(c.Context())
	if err != nil {
		h.logger.Error("listing sources for dashboard failed", zap.Error(err))
		sources = nil
	}

	statuses := make([]dto.SourceStatusResponse, len(sources))
	active := 0
	for i, src := range sources {
		statuses[i] = dto.FromSourceStatus(src.Name, h.tracker.StatusFor(src.ID))
		if src.IsActive {
			active++
		}
	}

	return c.Render("pages/dashboard", fiber.Map{
		"Title":       "Component Catalog Dashboard",
		"SourceCount": len(sources),
		"ActiveCount": active,
		"Statuses":    statuses,
	}, "layouts/base")
}
