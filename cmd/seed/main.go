// Command seed creates the first superuser and the first client account.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-api-accounts/internal/app"
	"github.com/go-api-accounts/internal/config"
	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/pkg/logging"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	seeds := []domain.SeedUser{
		{
			Email:       cfg.FirstSuperuserEmail,
			Password:    cfg.FirstSuperuserPassword,
			FirstName:   "Test",
			LastName:    "Admin",
			IsStaff:     true,
			IsSuperuser: true,
		},
		{
			Email:     cfg.FirstClientEmail,
			Password:  cfg.FirstClientPassword,
			FirstName: "Test",
			LastName:  "Client",
		},
	}
	failed := false
	for _, s := range seeds {
		u, created, err := a.Accounts.EnsureUser(ctx, s)
		if err != nil {
			logger.Error("seed user", "email", s.Email, "err", err)
			failed = true
			continue
		}
		logger.Info("seed user", "email", u.Email, "id", u.UserID, "created", created)
	}
	if failed {
		a.Close()
		os.Exit(1)
	}
}
