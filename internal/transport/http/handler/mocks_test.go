package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) VerifyEmail(ctx context.Context, req domain.VerifyOTPRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccounts) ResendVerificationEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccounts) SendPasswordResetOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAccounts) SetNewPassword(ctx context.Context, req domain.SetNewPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAccounts) UploadAvatar(ctx context.Context, u *domain.User, upload domain.AvatarUpload) (*domain.User, error) {
	args := m.Called(ctx, u, upload.Filename, upload.ContentType)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) AvatarURL(ctx context.Context, u *domain.User) string {
	return m.Called(ctx, u).String(0)
}

func (m *mockAccounts) EnsureUser(ctx context.Context, seed domain.SeedUser) (*domain.User, bool, error) {
	args := m.Called(ctx, seed)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Resolve(ctx context.Context, bearer string) (*domain.User, error) {
	args := m.Called(ctx, bearer)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessions) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if p, _ := args.Get(0).(*domain.TokenPair); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessions) Refresh(ctx context.Context, refresh string) (*domain.TokenPair, error) {
	args := m.Called(ctx, refresh)
	if p, _ := args.Get(0).(*domain.TokenPair); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, access string) error {
	return m.Called(ctx, access).Error(0)
}

// --- helpers ---

func jsonReq(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(b))
}

// withUser authenticates the request the way middleware.Auth would.
func withUser(r *http.Request, u *domain.User, bearer string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserKey, u)
	ctx = context.WithValue(ctx, middleware.BearerKey, bearer)
	return r.WithContext(ctx)
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e
}

func decodeData(t *testing.T, e envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, dst))
}
