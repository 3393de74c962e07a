package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/domain"
	"component-catalog-service/internal/transport/httpserver/dto"
	"component-catalog-service/internal/validator"
)

// AdminHandler handles source administration requests.
type AdminHandler struct {
	sources   *service.SourceService
	catalog   *service.CatalogService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sources *service.SourceService, catalog *service.CatalogService, v *validator.Validator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sources:   sources,
		catalog:   catalog,
		validator: v,
		logger:    logger,
	}
}

// ListSources handles GET /api/v1/admin/sources
func (h *AdminHandler) ListSources(c *fiber.Ctx) error {
	sources, err := h.sources.List(c.Context())
	if err != nil {
		return internalError(c, h.logger, "listing sources failed", err)
	}

	return c.JSON(fiber.Map{"sources": dto.FromSources(sources)})
}

// GetSource handles GET /api/v1/admin/sources/:id
func (h *AdminHandler) GetSource(c *fiber.Ctx) error {
	src, err := h.sources.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return sourceNotFound(c)
		}

		return internalError(c, h.logger, "getting source failed", err)
	}

	return c.JSON(dto.FromSource(src))
}

// CreateSource handles POST /api/v1/admin/sources
func (h *AdminHandler) CreateSource(c *fiber.Ctx) error {
	req, ok := h.parseSourceRequest(c)
	if !ok {
		return nil
	}

	src := req.ToDomain()
	if err := h.sources.Create(c.Context(), src); err != nil {
		return internalError(c, h.logger, "creating source failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.FromSource(src))
}

// UpdateSource handles PUT /api/v1/admin/sources/:id
func (h *AdminHandler) UpdateSource(c *fiber.Ctx) error {
	src, err := h.sources.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return sourceNotFound(c)
		}

		return internalError(c, h.logger, "getting source failed", err)
	}

	req, ok := h.parseSourceRequest(c)
	if !ok {
		return nil
	}

	req.ApplyTo(src)
	if err := h.sources.Update(c.Context(), src); err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return sourceNotFound(c)
		}

		return internalError(c, h.logger, "updating source failed", err)
	}

	return c.JSON(dto.FromSource(src))
}

// DeleteSource handles DELETE /api/v1/admin/sources/:id
func (h *AdminHandler) DeleteSource(c *fiber.Ctx) error {
	if err := h.sources.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return sourceNotFound(c)
		}

		return internalError(c, h.logger, "deleting source failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Refresh handles POST /api/v1/admin/refresh
// Drops every cached listing and refetches all active sources.
func (h *AdminHandler) Refresh(c *fiber.Ctx) error {
	h.logger.Info("manual refresh triggered")

	if err := h.catalog.InvalidateListings(c.Context()); err != nil {
		return internalError(c, h.logger, "invalidating listings failed", err)
	}

	results := h.catalog.RefreshAll(c.Context())

	return c.JSON(dto.FromRefreshResults(results))
}

// Retry handles POST /api/v1/admin/sources/:id/retry
func (h *AdminHandler) Retry(c *fiber.Ctx) error {
	id := c.Params("id")

	h.logger.Info("manual source retry triggered", zap.String("source_id", id))

	if err := h.sources.Retry(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return sourceNotFound(c)
		}

		return internalError(c, h.logger, "source retry failed", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// parseSourceRequest parses and validates a source payload, writing the
// error response itself when the payload is bad.
func (h *AdminHandler) parseSourceRequest(c *fiber.Ctx) (*dto.SourceRequest, bool) {
	var req dto.SourceRequest
	if err := c.BodyParser(&req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})

		return nil, false
	}

	if err := h.validator.Validate(&req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Code:    "VALIDATION_ERROR",
			Details: err,
		})

		return nil, false
	}

	return &req, true
}

func sourceNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: "source not found",
		Code:  "NOT_FOUND",
	})
}

func internalError(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	logger.Error(msg, zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: msg,
		Code:  "INTERNAL_ERROR",
	})
}
