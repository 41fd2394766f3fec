package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cr3t")

	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, BackendDynamo, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.EmailOTPTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_TTLOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("REFRESH_TOKEN_EXPIRE_MINUTES", "60")
	t.Setenv("EMAIL_OTP_EXPIRE_SECONDS", "120")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.EmailOTPTTL)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "soon")
	assert.Equal(t, 30*time.Minute, Load().AccessTokenTTL)
}

func TestValidate_MissingSecret(t *testing.T) {
	cfg := Load()
	cfg.SecretKey = ""
	assert.ErrorContains(t, cfg.Validate(), "SECRET_KEY")
}

func TestValidate_BadBackendAndTTL(t *testing.T) {
	cfg := Load()
	cfg.SecretKey = "x"
	cfg.StoreBackend = "mongo"
	cfg.AccessTokenTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "STORE_BACKEND")
	assert.ErrorContains(t, err, "ACCESS_TOKEN_EXPIRE_MINUTES")
}
