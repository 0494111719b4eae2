// internal/middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORS wraps the whole engine so preflight requests never reach gin.
func NewCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch,
			http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
