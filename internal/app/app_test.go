package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/go-api-accounts/internal/config"
	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	t.Setenv("SECRET_KEY", "app-test-secret")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	cfg := config.Load()
	cfg.StoreBackend = backend
	return cfg
}

func TestBuild_MemoryBackendSeedsOnce(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	a, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	seed := domain.SeedUser{Email: "admin@example.com", Password: "admin-password", FirstName: "Test", LastName: "Admin", IsSuperuser: true}
	u, created, err := a.Accounts.EnsureUser(context.Background(), seed)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, u.IsEmailVerified)

	again, created, err := a.Accounts.EnsureUser(context.Background(), seed)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.UserID, again.UserID)

	pair, err := a.Sessions.Login(context.Background(), seed.Email, seed.Password)
	require.NoError(t, err)
	resolved, err := a.Sessions.Resolve(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.True(t, resolved.IsSuperuser)
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, "mongo")
	_, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "mongo")
}

func TestBuild_FailureAfterOpenReleasesStores(t *testing.T) {
	closed := 0
	prev := openStores
	openStores = func(a *App, _ context.Context, _ *config.Config) (UserStore, TokenStore, error) {
		a.closers = append(a.closers, func() error { closed++; return nil })
		return memory.NewUserRepo(), memory.NewTokenRepo(), nil
	}
	t.Cleanup(func() { openStores = prev })

	cfg := testConfig(t, config.BackendMemory)
	cfg.SecretKey = ""
	a, err := Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, 1, closed)
}
