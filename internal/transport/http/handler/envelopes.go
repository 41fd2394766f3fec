package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/pkg/validate"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// TokensData is the payload of login and refresh responses.
type TokensData struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// EmailData is the payload of the registration response.
type EmailData struct {
	Email string `json:"email"`
}

// Profile is the public view of the authenticated account.
type Profile struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

func toProfile(u *domain.User, avatarURL string) Profile {
	return Profile{
		ID:              u.UserID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Avatar:          avatarURL,
		IsEmailVerified: u.IsEmailVerified,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, msg string, data interface{}) {
	writeJSON(w, status, Envelope{Status: statusSuccess, Message: msg, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, msg string, data interface{}) {
	writeJSON(w, status, Envelope{Status: statusFailure, Code: code, Message: msg, Data: data})
}

// decode reads a JSON body into dst and validates it. On failure it writes the 422
// response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusUnprocessableEntity, codeInvalidEntry, msgInvalidEntry,
			map[string]string{"body": "Invalid JSON body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}
