package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a comma separated list, "*" allows any origin
	AllowedOrigins   string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials bool
	MaxAge           int
}

// allowOrigin returns the value of Access-Control-Allow-Origin for origin,
// empty when the origin is not allowed
func (c CORSConfig) allowOrigin(origin string) string {
	for _, allowed := range strings.Split(c.AllowedOrigins, ",") {
		allowed = strings.TrimSpace(allowed)
		switch {
		case allowed == "*":
			if c.AllowCredentials && origin != "" {
				return origin
			}
			return "*"
		case allowed != "" && strings.EqualFold(allowed, origin):
			return origin
		}
	}
	return ""
}

// CORS middleware adds CORS headers to responses
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowed := config.allowOrigin(origin); allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Methods", config.AllowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", config.AllowedHeaders)
				w.Header().Set("Access-Control-Expose-Headers", CorrelationIDHeader)
				if allowed != "*" {
					w.Header().Add("Vary", "Origin")
				}

				if config.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}

				if config.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
				}
			}

			// preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
