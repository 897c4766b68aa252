package middleware

import (
	"net/http"

	"github.com/benvon/whatodo/internal/request"
	"github.com/benvon/whatodo/internal/services/ai"
	"github.com/google/uuid"
)

// RequestID tags each request with an id, reusing a sane incoming X-Request-ID.
// The id reaches provider logs through the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := request.IncomingID(r)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(request.IDHeader, id)
		next.ServeHTTP(w, r.WithContext(ai.WithRequestID(r.Context(), id)))
	})
}
