package server

import (
	"net"
	"net/http"
	"time"

	"github.com/wedstudio/pagefeed/internal/ratelimit"
	"github.com/wedstudio/pagefeed/pkg/logger"
)

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			log.Info("Request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// rateLimit rejects callers that exceed their per-IP budget. Only the
// mutating routes are limited; every refresh fans out into upstream
// Graph API calls and a hammered endpoint would burn the API quota.
func rateLimit(limiter ratelimit.Limiter, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				log.Warn("Rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
				respondJSON(w, log, http.StatusTooManyRequests, map[string]string{
					"error": "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
