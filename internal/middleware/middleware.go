// file: internal/middleware/middleware.go
package middleware

import (
	"net/http"
	"time"

	"learnhub/internal/response"
	"learnhub/internal/services"

	"go.uber.org/zap"
)

const slowRequestThreshold = 2 * time.Second

// AccessLog logs one line per completed request with its status and latency
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := GetRequestStart(r.Context())
			requestLogger := GetRequestLogger(r.Context())

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			fields := []zap.Field{
				zap.Int("status", rw.status),
				zap.Duration("duration", duration),
				zap.Int64("response_size", rw.bytesWritten),
			}
			switch {
			case rw.status >= http.StatusInternalServerError:
				requestLogger.Error("Request completed", fields...)
			case duration > slowRequestThreshold:
				requestLogger.Warn("Slow request detected", fields...)
			default:
				requestLogger.Info("Request completed", fields...)
			}
		})
	}
}

// RecoverPanic turns a handler panic into a JSON 500 response
func RecoverPanic(builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					GetRequestLogger(r.Context()).Error("Panic recovered",
						zap.Any("panic", p),
						zap.Stack("stack"),
					)
					builder.WriteError(w, r, services.NewInternalError("panic while handling request", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	written, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += int64(written)
	return written, err
}
