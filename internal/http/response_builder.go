// Package http serves the expense tracker JSON API.
//
// Every response body is an envelope: {success, message, data} on success and
// {success:false, message, error} on failure. Validation failures carry an
// errors array of {field, message} instead of error.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Count   *int         `json:"count,omitempty"`
	Data    any          `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// ResponseBuilder provides a fluent API for building envelope responses.
type ResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewResponse starts a successful 200 response.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.envelope.Message = msg
	return b
}

// Data sets the payload. Pass a non-nil empty slice so empty lists encode as [].
func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.envelope.Data = data
	return b
}

// Count adds the item count used by list endpoints.
func (b *ResponseBuilder) Count(n int) *ResponseBuilder {
	b.envelope.Count = &n
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	body, err := json.Marshal(b.envelope)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Something went wrong!"}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// ErrorResponse creates a failure envelope. detail is exposed as the error
// field when non-empty.
func ErrorResponse(statusCode int, message, detail string) *ResponseBuilder {
	b := NewResponse().Status(statusCode).Message(message)
	b.envelope.Success = false
	b.envelope.Error = detail
	return b
}

// ValidationError creates the 400 response listing every invalid field.
func ValidationError(errs []FieldError) *ResponseBuilder {
	b := ErrorResponse(http.StatusBadRequest, "Validation failed", "")
	b.envelope.Errors = errs
	return b
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, "")
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, "")
}

// MethodNotAllowedError reports a write against a read-only ledger.
func MethodNotAllowedError(message, allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, message, "").Header("Allow", allowedMethods)
}

func InternalServerError(message string, err error) *ResponseBuilder {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return ErrorResponse(http.StatusInternalServerError, message, detail)
}
