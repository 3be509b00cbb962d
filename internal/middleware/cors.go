// Package middleware provides HTTP middleware for the sandbox backend.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that lets widget pages on other origins call the sandbox.
// Credentials are only allowed when every origin is listed explicitly; a wildcard entry
// echoes any origin and must not be combined with credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
