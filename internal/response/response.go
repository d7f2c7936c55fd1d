package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"learnhub/internal/contextutils"
	"learnhub/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE CONFIGURATION
// ===============================

// Config holds configuration for the response system
type Config struct {
	PrettyJSON         bool   `json:"pretty_json"`
	IncludeRequestID   bool   `json:"include_request_id"`
	IncludeTimestamp   bool   `json:"include_timestamp"`
	APIVersion         string `json:"api_version"`
	MaskInternalErrors bool   `json:"mask_internal_errors"`
}

// DefaultConfig returns production response configuration
func DefaultConfig() *Config {
	return &Config{
		IncludeRequestID:   true,
		IncludeTimestamp:   true,
		APIVersion:         "v1",
		MaskInternalErrors: true,
	}
}

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse is the JSON envelope of every API response
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Version   string       `json:"version,omitempty"`
}

// ErrorDetail represents error information in API responses
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// RESPONSE BUILDER
// ===============================

// Builder writes standardized JSON envelopes
type Builder struct {
	config *Config
	logger *zap.Logger
}

// NewBuilder creates a new response builder
func NewBuilder(config *Config, logger *zap.Logger) *Builder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{config: config, logger: logger}
}

// Success creates a successful API response
func (b *Builder) Success(ctx context.Context, data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.config.APIVersion,
	}
}

// Error creates an error response from a service error
func (b *Builder) Error(ctx context.Context, err error) *APIResponse {
	detail := b.convertError(err)
	b.logError(ctx, err, detail)
	return &APIResponse{
		Success:   false,
		Error:     detail,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.config.APIVersion,
	}
}

// ===============================
// HTTP RESPONSE WRITERS
// ===============================

// WriteJSON writes a JSON response with appropriate headers
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, response *APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if b.config.PrettyJSON {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(response); err != nil {
		b.logger.Error("Failed to encode JSON response",
			zap.Error(err),
			zap.String("request_id", b.getRequestID(r.Context())),
		)
	}
}

// WriteSuccess writes a 200 response
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusOK)
}

// WriteAccepted writes a 202 response for work that may finish in the background
func (b *Builder) WriteAccepted(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusAccepted)
}

// WriteError writes an error response with the status code carried by the error
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	b.WriteJSON(w, r, b.Error(r.Context(), err), StatusCodeFromError(err))
}

// StatusCodeFromError maps a service error to its HTTP status
func StatusCodeFromError(err error) int {
	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		return serviceErr.GetStatusCode()
	}
	return http.StatusInternalServerError
}

// ===============================
// UTILITY METHODS
// ===============================

func (b *Builder) convertError(err error) *ErrorDetail {
	if err == nil {
		return nil
	}

	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		detail := &ErrorDetail{
			Type:    serviceErr.Type,
			Message: serviceErr.Message,
			Code:    serviceErr.Code,
			Details: serviceErr.Details,
		}
		if b.config.MaskInternalErrors && serviceErr.Type == "INTERNAL_ERROR" {
			detail.Message = "An internal error occurred"
			detail.Details = nil
		}
		return detail
	}

	message := err.Error()
	if b.config.MaskInternalErrors {
		message = "An unexpected error occurred"
	}
	return &ErrorDetail{Type: "INTERNAL_ERROR", Message: message}
}

func (b *Builder) getRequestID(ctx context.Context) string {
	if !b.config.IncludeRequestID {
		return ""
	}
	return contextutils.GetRequestID(ctx)
}

func (b *Builder) getTimestamp() int64 {
	if !b.config.IncludeTimestamp {
		return 0
	}
	return time.Now().Unix()
}

func (b *Builder) logError(ctx context.Context, err error, detail *ErrorDetail) {
	fields := []zap.Field{
		zap.String("request_id", b.getRequestID(ctx)),
		zap.String("error_type", detail.Type),
		zap.String("error_message", detail.Message),
	}
	switch detail.Type {
	case "VALIDATION_ERROR", "NOT_FOUND":
		b.logger.Warn("Request error", fields...)
	case "INTERNAL_ERROR", "SERVICE_UNAVAILABLE":
		b.logger.Error("Request failed", append(fields, zap.Error(err))...)
	default:
		b.logger.Info("Request completed with error", fields...)
	}
}
