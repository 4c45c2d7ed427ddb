// Package requesttime pins a single "now" per HTTP request so that domain
// timestamps and audit entries written during one call never disagree.
package requesttime

import (
	"net/http"
	"time"

	"ngoconnect/pkg/requestcontext"
)

// Middleware stamps the request context with the arrival time. Handlers and
// services read it back through requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
