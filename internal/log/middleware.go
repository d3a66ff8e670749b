package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			logger := FromContext(r.Context()).With(NewFields().WithRequestID(requestID).ToSlice()...)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogDatasetLoaded logs a successful dataset load
func (sl *StructuredLogger) LogDatasetLoaded(ctx context.Context, source string, rows, cols int, revenue bool) {
	fields := NewFields().
		WithDataset(source, rows, cols).
		WithOperation(OpLoad).
		ToSlice()
	fields = append(fields, "revenue_available", revenue)

	sl.logger.WithComponent(ComponentLoader).InfoContext(ctx, "Dataset loaded", fields...)
}

// LogViewUnavailable logs a view that could not be derived for a selection
func (sl *StructuredLogger) LogViewUnavailable(ctx context.Context, view, group, axis string, err error) {
	fields := NewFields().
		WithSelection(group, axis).
		WithOperation(OpRender).
		WithError(err).
		ToSlice()
	fields = append(fields, FieldView, view)

	sl.logger.WithComponent(ComponentViews).WarnContext(ctx, "View unavailable", fields...)
}

// LogImportCompleted logs a dataset copied into a storage table
func (sl *StructuredLogger) LogImportCompleted(ctx context.Context, source, table string, rows, cols int) {
	fields := NewFields().
		WithDataset(source, rows, cols).
		WithOperation(OpImport).
		ToSlice()
	fields = append(fields, "table", table)

	sl.logger.WithComponent(ComponentImport).InfoContext(ctx, "Import completed", fields...)
}

// LogPublishFailed logs a dataset event the broker did not accept
func (sl *StructuredLogger) LogPublishFailed(ctx context.Context, eventType, source string, err error) {
	fields := NewFields()
	fields[FieldSource] = source
	fields["type"] = eventType
	sl.LogError(ctx, "Failed to publish dataset event", err, ComponentAMQP, OpPublish, fields)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}
