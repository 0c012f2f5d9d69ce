package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/token"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// MessageResponse acknowledges a mutation, optionally echoing the record.
type MessageResponse struct {
	Message string `json:"message"`
	Expense any    `json:"expense,omitempty"`
	User    any    `json:"user,omitempty"`
}

// LoginResponse carries an issued bearer token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorStatus maps a core, auth or token error to a status and a response.
// Unknown errors are internal and never leak their text.
func errorStatus(err error) (int, ErrorResponse) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ErrorResponse{Detail: ve.Err.Error(), Field: ve.Field}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrorResponse{Detail: "Malformed request body"}
	case errors.Is(err, core.ErrDuplicateEmail):
		return http.StatusBadRequest, ErrorResponse{Detail: "Email already registered", Field: "email"}
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Detail: "Invalid credentials"}
	case errors.Is(err, token.ErrTokenExpired):
		return http.StatusUnauthorized, ErrorResponse{Detail: "Token has expired"}
	case errors.Is(err, token.ErrTokenInvalid), errors.Is(err, core.ErrUnknownSubject), errors.Is(err, errMissingToken):
		return http.StatusUnauthorized, ErrorResponse{Detail: "Invalid token"}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Detail: "Expense not found"}
	}
	return http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"}
}

// writeError translates err into a response and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := errorStatus(err)

	switch {
	case status == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer`)
	case status >= http.StatusInternalServerError:
		errType := applog.ErrorTypeInternal
		var se *core.StorageError
		if errors.As(err, &se) {
			errType = applog.ErrorTypeDatabase
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, errType)
	}

	writeJSON(w, status, body)
}
