package middleware

import (
	"net/http"
)

// DefaultMaxBodySize bounds JSON request bodies. Event and account payloads
// are a few hundred bytes.
const DefaultMaxBodySize int64 = 64 << 10

// RequestSize wraps the body with http.MaxBytesReader. Handlers see a
// *http.MaxBytesError when decoding past the limit and answer 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
