// Package requesttime provides middleware for request-scoped time.
// Every operation within a single HTTP request sees the same "now", so an
// entity written and notified about in one request carries one timestamp.
package requesttime

import (
	"net/http"
	"time"

	"finflow/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// stores it in the context for the services to read via requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
