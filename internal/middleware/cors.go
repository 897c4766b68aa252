package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// DefaultFrontendOrigin is always allowed so the local front end works out of the box
const DefaultFrontendOrigin = "http://localhost:3000"

// ParseOrigins splits a comma-separated origin list, dropping blanks and duplicates
func ParseOrigins(frontendURL string) []string {
	origins := []string{DefaultFrontendOrigin}
	seen := map[string]bool{DefaultFrontendOrigin: true}
	for _, origin := range strings.Split(frontendURL, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		origins = append(origins, trimmed)
	}
	return origins
}

// CORS answers preflight requests and sets CORS headers for the configured origins
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   ParseOrigins(frontendURL),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return c.Handler
}
