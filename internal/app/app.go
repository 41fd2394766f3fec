// Package app wires configuration into stores and application services. Both the API
// server and the seed command start from Build.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-accounts/internal/application/account"
	"github.com/go-api-accounts/internal/application/notify"
	"github.com/go-api-accounts/internal/application/otp"
	"github.com/go-api-accounts/internal/application/session"
	"github.com/go-api-accounts/internal/config"
	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-api-accounts/internal/infrastructure/jwt"
	"github.com/go-api-accounts/internal/infrastructure/memory"
	"github.com/go-api-accounts/internal/infrastructure/postgres"
	s3infra "github.com/go-api-accounts/internal/infrastructure/s3"
	"github.com/go-api-accounts/internal/infrastructure/smtp"
	"github.com/go-api-accounts/internal/infrastructure/sns"
)

// UserStore is the credential store every backend implements.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetOTP(ctx context.Context, userID string, code int, expiry time.Time) error
	VerifyEmail(ctx context.Context, userID string, code int) error
	ResetPassword(ctx context.Context, userID string, code int, passwordHash string) error
	SetAvatar(ctx context.Context, userID, key string) error
}

// TokenStore is the access/refresh pair store every backend implements.
type TokenStore interface {
	Put(ctx context.Context, t *domain.Token) error
	Get(ctx context.Context, tokenID string) (*domain.Token, error)
	GetByAccess(ctx context.Context, access string) (*domain.Token, error)
	GetByRefresh(ctx context.Context, refresh string) (*domain.Token, error)
	Rotate(ctx context.Context, tokenID, oldRefresh, access, refresh string) error
	Delete(ctx context.Context, tokenID, access string) error
	DeleteByAccess(ctx context.Context, access string) error
}

type App struct {
	Accounts account.Service
	Sessions session.Service

	mail    *smtp.Dispatcher
	closers []func() error
}

// openStores is swapped out in tests.
var openStores = (*App).openStores

// Build opens the configured store backend and assembles the services on top of it.
// Anything opened before a failure is released.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{}
	users, tokens, err := openStores(a, ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := jwtinfra.NewProvider([]byte(cfg.SecretKey))
	if err != nil {
		if cerr := a.closeStores(); cerr != nil {
			log.Warn("close stores", "err", cerr)
		}
		return nil, err
	}

	var events sns.EventPublisher = sns.NopPublisher{}
	if cfg.SNSTopicARN != "" {
		client, err := sns.NewClient(cfg)
		if err != nil {
			log.Warn("account events disabled", "err", err)
		} else {
			events = sns.NewPublisher(client, cfg.SNSTopicARN)
		}
	}

	a.mail = smtp.NewDispatcher(smtp.NewMailer(cfg), log)
	notifier := notify.New(a.mail, cfg.EmailOTPTTL)
	otpSvc := otp.NewService(otp.ServiceDeps{
		UserRepo: users,
		Notifier: notifier,
		TTL:      cfg.EmailOTPTTL,
	})

	a.Accounts = account.NewService(account.ServiceDeps{
		UserRepo:         users,
		OTP:              otpSvc,
		Notifier:         notifier,
		Avatars:          s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3BucketName),
		Events:           events,
		DefaultAvatarURL: cfg.DefaultAvatarURL,
	})
	a.Sessions = session.NewService(session.ServiceDeps{
		UserRepo:    users,
		TokenRepo:   tokens,
		JWTProvider: provider,
		AccessTTL:   cfg.AccessTokenTTL,
		RefreshTTL:  cfg.RefreshTokenTTL,
	})
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (UserStore, TokenStore, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamo:
		client := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewUserRepo(client, cfg.DynamoTables.Users), dynamo.NewTokenRepo(client, cfg.DynamoTables.Tokens), nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		return postgres.NewUserRepo(db), postgres.NewTokenRepo(db), nil
	case config.BackendMemory:
		return memory.NewUserRepo(), memory.NewTokenRepo(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close waits for queued email and releases store connections.
func (a *App) Close() error {
	if a.mail != nil {
		a.mail.Wait()
	}
	return a.closeStores()
}

func (a *App) closeStores() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
