// Provides the access log middleware.

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maruel/todod/internal/server/ipgeo"
	"github.com/maruel/todod/internal/server/reqctx"
)

// statusRecorder captures the status code and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// AccessLog tags each request with an ID, the client IP and its country, and
// logs one line per request once the response is written. geo may be nil.
func AccessLog(geo *ipgeo.Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := reqctx.NewRequestID()
			ip := reqctx.GetClientIP(r)
			country := geo.CountryCode(ip)

			ctx := reqctx.WithRequestID(r.Context(), id)
			ctx = reqctx.WithClientIP(ctx, ip)
			ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
			ctx = reqctx.WithCountryCode(ctx, country)
			w.Header().Set("X-Request-ID", id)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"size", rec.size,
				"dur", time.Since(start).Round(time.Microsecond),
				"ip", ip,
				"cc", country,
				"rid", id,
			)
		})
	}
}
