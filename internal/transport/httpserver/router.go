// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/auth"
	"component-catalog-service/internal/transport/httpserver/handler"
	"component-catalog-service/internal/transport/httpserver/middleware"
	"component-catalog-service/internal/validator"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port      int
	BodyLimit int
	Debug     bool
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	cfg ServerConfig,
	catalogSvc *service.CatalogService,
	sourceSvc *service.SourceService,
	tracker *service.ConnectionTracker,
	verifier *auth.Verifier,
	db *gorm.DB,
	v *validator.Validator,
	logger *zap.Logger,
) *Server {
	// Template engine for dashboard
	engine := html.New("./web/templates", ".html")
	if cfg.Debug {
		engine.Reload(true)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "component-catalog-service",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler(logger),
		Views:        engine,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// for Kubernetes probes to work even during high load
	app.Use(middleware.NewHealthCheck(db))

	// Global middleware
	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(middleware.CORS())
	app.Use(compress.New())
	app.Use(middleware.WithRole(verifier))

	// Static files
	app.Static("/static", "./web/static")

	// Create handlers
	catalogHandler := handler.NewCatalogHandler(catalogSvc, v, logger)
	statusHandler := handler.NewStatusHandler(sourceSvc, tracker, logger)
	adminHandler := handler.NewAdminHandler(sourceSvc, catalogSvc, v, logger)
	dashboardHandler := handler.NewDashboardHandler(sourceSvc, tracker, logger)

	// Register routes
	registerRoutes(app, catalogHandler, statusHandler, adminHandler, dashboardHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

// registerRoutes sets up all API routes.
func registerRoutes(
	app *fiber.App,
	catalogHandler *handler.CatalogHandler,
	statusHandler *handler.StatusHandler,
	adminHandler *handler.AdminHandler,
	dashboardHandler *handler.DashboardHandler,
) {
	// Health checks are handled by middleware (/livez, /readyz)

	// Dashboard (HTML)
	app.Get("/dashboard", dashboardHandler.Render)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard")
	})

	// API v1 routes
	v1 := app.Group("/api/v1")

	// Catalog
	v1.Get("/components", catalogHandler.Catalog)
	v1.Get("/categories", catalogHandler.Categories)
	v1.Get("/sources/status", statusHandler.Status)

	// Admin routes
	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.Get("/sources", adminHandler.ListSources)
	admin.Post("/sources", adminHandler.CreateSource)
	admin.Get("/sources/:id", adminHandler.GetSource)
	admin.Put("/sources/:id", adminHandler.UpdateSource)
	admin.Delete("/sources/:id", adminHandler.DeleteSource)
	admin.Post("/sources/:id/retry", adminHandler.Retry)
	admin.Post("/refresh", adminHandler.Refresh)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		// Log based on status code - 404s are common and not server errors
		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		case code >= 400:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Error("unhandled error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "UNHANDLED_ERROR",
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
