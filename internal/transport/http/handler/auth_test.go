package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-accounts/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var validRegister = domain.RegisterRequest{
	FirstName:      "Ada",
	LastName:       "Lovelace",
	Email:          "ada@example.com",
	Password:       "password123",
	TermsAgreement: true,
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAccounts{}, &mockSessions{})
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("not-json")))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "invalid_entry", decodeEnvelope(t, rr).Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	accounts := &mockAccounts{}
	h := NewAuthHandler(accounts, &mockSessions{})
	rr := httptest.NewRecorder()
	h.Register(rr, jsonReq(t, http.MethodPost, "/api/v1/auth/register", domain.RegisterRequest{Email: "nope", Password: "short"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	e := decodeEnvelope(t, rr)
	assert.Equal(t, "failure", e.Status)
	assert.Equal(t, "Invalid Entry", e.Message)
	var fields map[string]string
	decodeData(t, e, &fields)
	assert.Equal(t, "Enter a valid email address", fields["email"])
	assert.Equal(t, "8 characters min", fields["password"])
	assert.Equal(t, "This field is required", fields["first_name"])
	accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	accounts := &mockAccounts{}
	accounts.On("Register", mock.Anything, validRegister).
		Return(nil, &domain.FieldError{Field: "email", Message: "Email already registered!", Err: domain.ErrConflict})
	h := NewAuthHandler(accounts, &mockSessions{})
	rr := httptest.NewRecorder()
	h.Register(rr, jsonReq(t, http.MethodPost, "/api/v1/auth/register", validRegister))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var fields map[string]string
	decodeData(t, decodeEnvelope(t, rr), &fields)
	assert.Equal(t, "Email already registered!", fields["email"])
	accounts.AssertExpectations(t)
}

func TestRegister_HappyPath(t *testing.T) {
	accounts := &mockAccounts{}
	accounts.On("Register", mock.Anything, validRegister).Return(&domain.User{UserID: "u1", Email: validRegister.Email}, nil)
	h := NewAuthHandler(accounts, &mockSessions{})
	rr := httptest.NewRecorder()
	h.Register(rr, jsonReq(t, http.MethodPost, "/api/v1/auth/register", validRegister))

	assert.Equal(t, http.StatusCreated, rr.Code)
	e := decodeEnvelope(t, rr)
	assert.Equal(t, "success", e.Status)
	assert.Equal(t, "Registration successful", e.Message)
	var data EmailData
	decodeData(t, e, &data)
	assert.Equal(t, "ada@example.com", data.Email)
	accounts.AssertExpectations(t)
}

// --- OTP flow tests ---

func TestVerifyEmail_Outcomes(t *testing.T) {
	req := domain.VerifyOTPRequest{Email: "ada@example.com", OTP: 123456}
	cases := []struct {
		name     string
		already  bool
		err      error
		wantCode int
		wantMsg  string
	}{
		{"verified", false, nil, http.StatusOK, "Account verification successful"},
		{"already verified", true, nil, http.StatusOK, "Email already verified"},
		{"bad code", false, domain.ErrInvalidOTP, http.StatusBadRequest, "Invalid Otp"},
		{"unknown email", false, domain.ErrNotFound, http.StatusNotFound, "Incorrect Email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &mockAccounts{}
			accounts.On("VerifyEmail", mock.Anything, req).Return(tc.already, tc.err)
			h := NewAuthHandler(accounts, &mockSessions{})
			rr := httptest.NewRecorder()
			h.VerifyEmail(rr, jsonReq(t, http.MethodPost, "/api/v1/auth/verify-email", req))

			assert.Equal(t, tc.wantCode, rr.Code)
			assert.Equal(t, tc.wantMsg, decodeEnvelope(t, rr).Message)
		})
	}
}

func TestResendVerificationEmail(t *testing.T) {
	accounts := &mockAccounts{}
	accounts.On("ResendVerificationEmail", mock.Anything, "ada@example.com").Return(false, nil)
	h := NewAuthHandler(accounts, &mockSessions{})
	rr := httptest.NewRecorder()
	h.ResendVerificationEmail(rr, jsonReq(t, http.MethodPost, "/", domain.RequestOTPRequest{Email: "ada@example.com"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Verification email sent", decodeEnvelope(t, rr).Message)
}

func TestSendPasswordResetOTP_UnknownEmail(t *testing.T) {
	accounts := &mockAccounts{}
	accounts.On("SendPasswordResetOTP", mock.Anything, "ghost@example.com").Return(domain.ErrNotFound)
	h := NewAuthHandler(accounts, &mockSessions{})
	rr := httptest.NewRecorder()
	h.SendPasswordResetOTP(rr, jsonReq(t, http.MethodPost, "/", domain.RequestOTPRequest{Email: "ghost@example.com"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "incorrect_email", decodeEnvelope(t, rr).Code)
}

func TestSetNewPassword(t *testing.T) {
	req := domain.SetNewPasswordRequest{Email: "ada@example.com", OTP: 654321, Password: "newpassword1"}
	accounts := &mockAccounts{}
	accounts.On("SetNewPassword", mock.Anything, req).Return(nil)
	h := NewAuthHandler(accounts, &mockSessions{})
	rr := httptest.NewRecorder()
	h.SetNewPassword(rr, jsonReq(t, http.MethodPost, "/", req))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Password reset successful", decodeEnvelope(t, rr).Message)
	accounts.AssertExpectations(t)
}

// --- token lifecycle tests ---

func TestLogin(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"ok", nil, http.StatusCreated, ""},
		{"wrong password", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"unverified", domain.ErrUnverifiedAccount, http.StatusUnauthorized, "unverified_user"},
		{"store down", domain.StorageError("get user", errors.New("boom")), http.StatusInternalServerError, "server_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &mockSessions{}
			var pair *domain.TokenPair
			if tc.err == nil {
				pair = &domain.TokenPair{Access: "a1", Refresh: "r1"}
			}
			sessions.On("Login", mock.Anything, "ada@example.com", "password123").Return(pair, tc.err)
			h := NewAuthHandler(&mockAccounts{}, sessions)
			rr := httptest.NewRecorder()
			h.Login(rr, jsonReq(t, http.MethodPost, "/", domain.LoginRequest{Email: "ada@example.com", Password: "password123"}))

			assert.Equal(t, tc.wantCode, rr.Code)
			e := decodeEnvelope(t, rr)
			assert.Equal(t, tc.wantErr, e.Code)
			if tc.err == nil {
				var data TokensData
				decodeData(t, e, &data)
				assert.Equal(t, TokensData{Access: "a1", Refresh: "r1"}, data)
			}
		})
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Refresh", mock.Anything, "r1").Return(nil, domain.ErrInvalidOrExpiredToken)
	h := NewAuthHandler(&mockAccounts{}, sessions)
	rr := httptest.NewRecorder()
	h.Refresh(rr, jsonReq(t, http.MethodPost, "/", domain.RefreshRequest{Refresh: "r1"}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	e := decodeEnvelope(t, rr)
	assert.Equal(t, "invalid_token", e.Code)
	assert.Equal(t, "Refresh token is invalid or expired", e.Message)
}

func TestRefresh_HappyPath(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Refresh", mock.Anything, "r1").Return(&domain.TokenPair{Access: "a2", Refresh: "r2"}, nil)
	h := NewAuthHandler(&mockAccounts{}, sessions)
	rr := httptest.NewRecorder()
	h.Refresh(rr, jsonReq(t, http.MethodPost, "/", domain.RefreshRequest{Refresh: "r1"}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	e := decodeEnvelope(t, rr)
	assert.Equal(t, "Tokens refresh successful", e.Message)
	var data TokensData
	decodeData(t, e, &data)
	assert.Equal(t, "r2", data.Refresh)
}

func TestLogout_UsesRequestBearer(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Logout", mock.Anything, "a1").Return(nil)
	h := NewAuthHandler(&mockAccounts{}, sessions)
	rr := httptest.NewRecorder()
	h.Logout(rr, withUser(httptest.NewRequest(http.MethodGet, "/", nil), &domain.User{UserID: "u1"}, "a1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Logout successful", decodeEnvelope(t, rr).Message)
	sessions.AssertExpectations(t)
}

func TestLogout_Unauthenticated(t *testing.T) {
	sessions := &mockSessions{}
	h := NewAuthHandler(&mockAccounts{}, sessions)
	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	sessions.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}
