package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// corsMiddleware allows every origin outside production. In production only
// the configured origins may call the API, with credentials.
func corsMiddleware(config Config) fiber.Handler {
	cfg := cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowOrigins: "*",
	}

	if config.Production {
		origins := make([]string, 0, len(config.AllowedOrigins))
		for _, o := range config.AllowedOrigins {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.AllowOrigins = strings.Join(origins, ",")
			cfg.AllowCredentials = true
		}
	}

	return cors.New(cfg)
}
