package middleware

import (
	"net/http"
)

// CacheControl returns a middleware that sets the given Cache-Control
// directive on GET and HEAD responses.
func CacheControl(directive string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", directive)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks read responses as uncacheable. Polling clients always
// replace their view with a fresh read.
func NoStore() func(http.Handler) http.Handler {
	return CacheControl("no-store")
}
