package handler

import (
	"errors"
	"net/http"

	"github.com/go-api-accounts/internal/application/account"
	"github.com/go-api-accounts/internal/application/session"
	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/transport/http/middleware"
)

// AuthHandler handles the /auth endpoints: registration, OTP flows and token lifecycle.
type AuthHandler struct {
	accounts account.Service
	sessions session.Service
}

func NewAuthHandler(accounts account.Service, sessions session.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Registration successful", EmailData{Email: u.Email})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	already, err := h.accounts.VerifyEmail(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if already {
		writeSuccess(w, http.StatusOK, "Email already verified", nil)
		return
	}
	writeSuccess(w, http.StatusOK, "Account verification successful", nil)
}

func (h *AuthHandler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestOTPRequest
	if !decode(w, r, &req) {
		return
	}
	already, err := h.accounts.ResendVerificationEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if already {
		writeSuccess(w, http.StatusOK, "Email already verified", nil)
		return
	}
	writeSuccess(w, http.StatusOK, "Verification email sent", nil)
}

func (h *AuthHandler) SendPasswordResetOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.accounts.SendPasswordResetOTP(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password otp sent", nil)
}

func (h *AuthHandler) SetNewPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.SetNewPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.accounts.SetNewPassword(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset successful", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Login successful", TokensData{Access: pair.Access, Refresh: pair.Refresh})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := h.sessions.Refresh(r.Context(), req.Refresh)
	if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		writeFailure(w, http.StatusUnauthorized, codeInvalidToken, "Refresh token is invalid or expired", nil)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Tokens refresh successful", TokensData{Access: pair.Access, Refresh: pair.Refresh})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	bearer, ok := middleware.BearerFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, codeInvalidAuth, msgNoBearer, nil)
		return
	}
	if err := h.sessions.Logout(r.Context(), bearer); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}
