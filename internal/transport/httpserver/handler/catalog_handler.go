// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/domain"
	"component-catalog-service/internal/transport/httpserver/dto"
	"component-catalog-service/internal/transport/httpserver/middleware"
	"component-catalog-service/internal/validator"
)

// CatalogHandler handles catalog browsing requests.
type CatalogHandler struct {
	catalog   *service.CatalogService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, v *validator.Validator, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:   catalog,
		validator: v,
		logger:    logger,
	}
}

// Catalog handles GET /api/v1/components
func (h *CatalogHandler) Catalog(c *fiber.Ctx) error {
	var req dto.CatalogRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  "INVALID_PARAMS",
		})
	}

	if err := h.validator.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Code:    "VALIDATION_ERROR",
			Details: err,
		})
	}

	query, err := req.ToQuery(middleware.RoleFrom(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_CATEGORIES",
		})
	}

	view, err := h.catalog.LoadCatalog(c.Context(), query)
	if err != nil {
		return h.catalogError(c, err)
	}

	return c.JSON(dto.FromCatalogView(view))
}

// Categories handles GET /api/v1/categories
func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	query := domain.CatalogQuery{Role: middleware.RoleFrom(c)}
	query.Normalize()

	view, err := h.catalog.LoadCatalog(c.Context(), query)
	if err != nil {
		return h.catalogError(c, err)
	}

	resp := dto.FromCatalogView(view)

	return c.JSON(fiber.Map{"categories": resp.Categories})
}

// catalogError maps aggregate load failures to HTTP statuses. Partial
// failures never reach here; they ride along inside the view.
func (h *CatalogHandler) catalogError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoSources):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "no sources available",
			Code:  "NO_SOURCES",
		})
	case errors.Is(err, domain.ErrAllSourcesFailed):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: "all sources failed",
			Code:  "ALL_SOURCES_FAILED",
		})
	default:
		h.logger.Error("catalog load failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "catalog load failed",
			Code:  "INTERNAL_ERROR",
		})
	}
}
