package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"neodukaan-backend/internal/config"
)

// replayedHeader mirrors handlers.ReplayedHeader. The POS reads it to tell a
// replayed checkout from a fresh one.
const replayedHeader = "Idempotent-Replayed"

// NewCORS lets the POS web app call the API from its own origin. Requests
// carry a bearer token, never cookies, so credentials stay off and the
// default wildcard origin remains valid.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{replayedHeader},
		AllowCredentials: false,
		MaxAge:           600,
	})
	return c.Handler
}
