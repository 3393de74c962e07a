package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS returns the CORS middleware. The catalog is consumed by browser-based
// editors on other origins, so reads are open; credentials stay disabled.
func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	})
}
