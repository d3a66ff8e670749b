package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIError is the body of every non-2xx API response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Error sets an error body.
func (b *JSONResponseBuilder) Error(code, message string) *JSONResponseBuilder {
	return b.Data(struct {
		Error APIError `json:"error"`
	}{APIError{Code: code, Message: message}})
}

// Write sends the response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(b.statusCode)
	if b.data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
