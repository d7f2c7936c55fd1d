// file: internal/middleware/request_id.go
package middleware

import (
	"context"
	"net/http"
	"time"

	"learnhub/internal/contextutils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextKey type for context keys to avoid conflicts
type ContextKey string

// RequestStartKey is the context key for request start time
const RequestStartKey ContextKey = "request_start"

// Request ID header constants
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

// RequestID reuses an upstream correlation id when present, generates one
// otherwise, and attaches a request-scoped logger
func RequestID(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = r.Header.Get(HeaderXCorrelationID)
			}
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderXRequestID, requestID)

			requestLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", getClientIP(r)),
			)

			ctx := contextutils.WithRequestID(r.Context(), requestID)
			ctx = contextutils.WithLogger(ctx, requestLogger)
			ctx = context.WithValue(ctx, RequestStartKey, start)

			requestLogger.Debug("Request started", zap.String("query", r.URL.RawQuery))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
