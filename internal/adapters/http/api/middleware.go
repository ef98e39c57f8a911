package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/wire"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/dedupe"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// metricsMiddleware records request count and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	})
}

// idempotent answers a repeated X-Request-ID with the stored response.
// Requests without the header always run.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(wire.HeaderRequestID)
		if rid == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := r.Header.Get(wire.HeaderIdentity) + " " + r.Method + " " + r.URL.Path + " " + rid

		if prev, seen := s.dedupe.SeenAndRecord(ctx, key); seen {
			metrics.RecordRequestDeduplicated()
			if prev.Pending {
				writeError(w, http.StatusConflict, codeRequestInFlight, ErrRequestInFlight)
				return
			}
			s.log.Debug(ctx, "replaying response", logger.String("request_id", rid))
			w.Header().Set("Content-Type", contentTypeJSON)
			w.Header().Set(wire.HeaderReplay, "true")
			w.WriteHeader(prev.Status)
			_, _ = w.Write(prev.Body)
			return
		}

		rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK, capture: &bytes.Buffer{}}
		next.ServeHTTP(rec, r)
		if rec.statusCode >= http.StatusInternalServerError {
			s.dedupe.Unrecord(ctx, key)
			return
		}
		s.dedupe.Complete(ctx, key, dedupe.Entry{Status: rec.statusCode, Body: rec.capture.Bytes()})
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code and,
// when capture is set, the body.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	capture    *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.capture != nil {
		rw.capture.Write(b)
	}
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
