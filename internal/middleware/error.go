package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Error codes carried in every error body
const (
	CodeValidation      = "VALIDATION"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidCategory = "INVALID_CATEGORY"
	CodeDuplicateName   = "DUPLICATE_NAME"
	CodeMediaRejected   = "MEDIA_REJECTED"
	CodeMediaError      = "MEDIA_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL"
)

// ErrorResponse is the body of every non-field error
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ValidationErrorResponse lists field level problems
type ValidationErrorResponse struct {
	Errors []ValidationError `json:"errors"`
}

// RespondWithError sends {"error": message, "code": code}
func RespondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	RespondWithJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RespondWithValidationErrors sends a 400 with the field errors
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	if errors == nil {
		errors = []ValidationError{}
	}
	RespondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{Errors: errors})
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					RespondWithError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
