package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which dashboard origins may call the admin API.
type CORSPolicy struct {
	// AllowedOrigins is an exact-match list; "*" echoes any origin.
	AllowedOrigins []string
	AllowedHeaders []string
	AllowedMethods []string
	MaxAge         time.Duration
}

// DefaultCORSPolicy covers the dashboard's requests.
func DefaultCORSPolicy(origins []string) CORSPolicy {
	return CORSPolicy{
		AllowedOrigins: origins,
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		MaxAge:         10 * time.Minute,
	}
}

// CORS applies the default policy for origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	return DefaultCORSPolicy(origins).Middleware()
}

// Middleware returns the CORS handler for p. Preflight requests from an
// allowed origin are answered with 204 without reaching next.
func (p CORSPolicy) Middleware() func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range p.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			allowAny = true
		default:
			allow[origin] = struct{}{}
		}
	}
	headers := strings.Join(p.AllowedHeaders, ", ")
	methods := strings.Join(p.AllowedMethods, ", ")
	maxAge := strconv.Itoa(int(p.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			_, listed := allow[origin]
			allowed := origin != "" && (allowAny || listed)
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Max-Age", maxAge)
			}

			if allowed && r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
