package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/pkg/validate"
)

const (
	codeInvalidEntry       = "invalid_entry"
	codeIncorrectEmail     = "incorrect_email"
	codeInvalidOTP         = "invalid_otp"
	codeInvalidCredentials = "invalid_credentials"
	codeUnverifiedUser     = "unverified_user"
	codeInvalidToken       = "invalid_token"
	codeInvalidAuth        = "invalid_auth"
	codeServerError        = "server_error"

	msgInvalidEntry = "Invalid Entry"
	msgNoBearer     = "Auth Bearer not provided!"
)

// writeServiceError maps a service error onto the API's status codes and error codes.
// Only unexpected failures are logged.
func writeServiceError(w http.ResponseWriter, err error) {
	var fe *domain.FieldError
	var ve *validate.Error
	switch {
	case errors.As(err, &fe):
		writeFailure(w, http.StatusUnprocessableEntity, codeInvalidEntry, msgInvalidEntry,
			map[string]string{fe.Field: fe.Message})
	case errors.As(err, &ve):
		writeFailure(w, http.StatusUnprocessableEntity, codeInvalidEntry, msgInvalidEntry, ve.Fields)
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeFailure(w, http.StatusUnauthorized, codeInvalidCredentials, "Invalid credentials", nil)
	case errors.Is(err, domain.ErrUnverifiedAccount):
		writeFailure(w, http.StatusUnauthorized, codeUnverifiedUser, "Verify your email first", nil)
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		writeFailure(w, http.StatusUnauthorized, codeInvalidToken, "Auth Token is Invalid or Expired!", nil)
	case errors.Is(err, domain.ErrInvalidOTP):
		writeFailure(w, http.StatusBadRequest, codeInvalidOTP, "Invalid Otp", nil)
	case errors.Is(err, domain.ErrNotFound):
		writeFailure(w, http.StatusNotFound, codeIncorrectEmail, "Incorrect Email", nil)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrBadRequest):
		writeFailure(w, http.StatusUnprocessableEntity, codeInvalidEntry, msgInvalidEntry, nil)
	default:
		slog.Error("request failed", "err", err)
		writeFailure(w, http.StatusInternalServerError, codeServerError, "Server Error", nil)
	}
}
