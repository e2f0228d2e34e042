package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"conduit/core"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	connStringPattern = regexp.MustCompile(`(?:mongodb|mongodb\+srv|redis|rediss|https?)://[^\s"']+`)
	filePathPattern   = regexp.MustCompile(`(?:^|\s)(?:[A-Za-z]:\\|/)(?:[^\\/:*?"<>|\s]+[\\/])+[^\\/:*?"<>|\s]+`)
	privateIPPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b`),
		regexp.MustCompile(`\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
		regexp.MustCompile(`\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
	}
	secretPattern     = regexp.MustCompile(`(?i)(password|secret|token|credential|authorization)[:=]\s*["']?[^"'\s]+["']?`)
	goroutinePattern  = regexp.MustCompile(`(?m)^goroutine \d+.*$`)
	mongoErrorPattern = regexp.MustCompile(`\((?:ServerSelectionError|MongoError)[^\)]*\)`)
)

// ErrorResponse is the body of every non-2xx JSON answer
type ErrorResponse struct {
	Error   string            `json:"error"`
	Fields  []core.FieldError `json:"fields,omitempty"`
	Details any               `json:"details,omitempty" swaggertype:"object"`
}

// SuccessResponse answers deletes
type SuccessResponse struct {
	Success bool `json:"success"`
}

// IDResponse answers creates
type IDResponse struct {
	ID string `json:"id"`
}

// sanitizeErrorMessage removes sensitive information from error messages before sending to clients
func sanitizeErrorMessage(message string) string {
	message = connStringPattern.ReplaceAllString(message, "[CONNECTION]")
	message = filePathPattern.ReplaceAllString(message, " [FILE_PATH]")
	for _, p := range privateIPPatterns {
		message = p.ReplaceAllString(message, "[PRIVATE_IP]")
	}
	message = secretPattern.ReplaceAllString(message, "$1=[REDACTED]")
	message = goroutinePattern.ReplaceAllString(message, "[STACK_TRACE]")
	message = mongoErrorPattern.ReplaceAllString(message, "[DATABASE_ERROR]")
	message = strings.TrimSpace(message)

	if len(message) > core.MaxErrorMessageLength {
		message = message[:core.MaxErrorMessageLength-3] + "..."
	}
	return message
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response to the client and logs it with proper sanitization
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	writeErrorResponse(w, statusCode, ErrorResponse{Error: message}, err, logger)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, body ErrorResponse, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		fields := []interface{}{"status_code", statusCode}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		if statusCode >= http.StatusInternalServerError {
			logger.Errorw(body.Error, fields...)
		} else {
			logger.Debugw(body.Error, fields...)
		}
	}
	body.Error = sanitizeErrorMessage(body.Error)
	writeJSON(w, statusCode, body)
}

// handleError maps a service error onto a status code and writes it.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, operation string, err error, fallback int) {
	status, body := classifyError(operation, err, fallback)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeErrorResponse(w, status, body, err, LogWithRequestID(r.Context(), a.logger))
}

// classifyError picks the status and body for err. fallback is used for
// errors that carry no classification, with the message "Failed to <operation>".
func classifyError(operation string, err error, fallback int) (int, ErrorResponse) {
	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: validationErr.Fields}
	}

	switch {
	case errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrUnknownMethod):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: notFoundMessage(err)}
	case errors.Is(err, core.ErrNotConnected), errors.Is(err, core.ErrVersionConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrCircuitBreakerOpen), errors.Is(err, core.ErrTooManyRequests):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "Integration platform unavailable"}
	}

	message := fmt.Sprintf("Failed to %s", operation)
	var platformErr *core.PlatformError
	if errors.As(err, &platformErr) {
		return http.StatusBadGateway, ErrorResponse{Error: message, Details: platformErr}
	}
	return fallback, ErrorResponse{Error: message}
}

func notFoundMessage(err error) string {
	var platformErr *core.PlatformError
	if errors.As(err, &platformErr) {
		return "Not found"
	}
	msg := err.Error()
	if msg == "" {
		return "Not found"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// decodeJSONBody decodes a JSON request body into dst and answers 400/413 on failure.
// An empty body is accepted when allowEmpty is set.
func (a *API) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err == nil {
		return nil
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}

	logger := LogWithRequestID(r.Context(), a.logger)
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesError):
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err, logger)
	case errors.As(err, &syntaxError):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at byte offset %d", syntaxError.Offset), err, logger)
	case errors.As(err, &unmarshalTypeError):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s': expected %s, got %s", unmarshalTypeError.Field, unmarshalTypeError.Type, unmarshalTypeError.Value), err, logger)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("JSON contains %s", strings.TrimPrefix(err.Error(), "json: ")), err, logger)
	default:
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err, logger)
	}
	return err
}

// pathVar returns a route variable
func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
