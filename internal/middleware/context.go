// file: internal/middleware/context.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"learnhub/internal/contextutils"

	"go.uber.org/zap"
)

// GetRequestLogger extracts the request-scoped logger from context
func GetRequestLogger(ctx context.Context) *zap.Logger {
	return contextutils.GetLogger(ctx, zap.NewNop())
}

// GetRequestStart extracts the request start time from context
func GetRequestStart(ctx context.Context) time.Time {
	if start, ok := ctx.Value(RequestStartKey).(time.Time); ok {
		return start
	}
	return time.Now()
}

// getClientIP extracts the real client IP address
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can be "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(client)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
