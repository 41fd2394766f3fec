package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-api-accounts/internal/domain"
	pkgtoken "github.com/go-api-accounts/internal/pkg/token"
)

// Purpose selects which email accompanies an issued code.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// Service issues one-time codes stored on the user record and consumes them.
// Every rejection (no code, wrong code, expired code, already used) is ErrInvalidOTP.
type Service interface {
	Issue(ctx context.Context, u *domain.User, purpose Purpose) (int, error)
	VerifyEmail(ctx context.Context, u *domain.User, code int) error
	VerifyPasswordReset(ctx context.Context, u *domain.User, code int, passwordHash string) error
}

type userStore interface {
	SetOTP(ctx context.Context, userID string, code int, expiry time.Time) error
	VerifyEmail(ctx context.Context, userID string, code int) error
	ResetPassword(ctx context.Context, userID string, code int, passwordHash string) error
}

type notifier interface {
	SendActivationOTP(u *domain.User, code int) error
	SendPasswordResetOTP(u *domain.User, code int) error
}

type service struct {
	repo     userStore
	notifier notifier
	ttl      time.Duration
	now      func() time.Time
	generate func() (int, error)
}

type ServiceDeps struct {
	UserRepo userStore
	Notifier notifier
	TTL      time.Duration
	// Now and Generate default to time.Now and pkg/token.NewOTP.
	Now      func() time.Time
	Generate func() (int, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:     deps.UserRepo,
		notifier: deps.Notifier,
		ttl:      deps.TTL,
		now:      deps.Now,
		generate: deps.Generate,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generate == nil {
		s.generate = pkgtoken.NewOTP
	}
	return s
}

func (s *service) Issue(ctx context.Context, u *domain.User, purpose Purpose) (int, error) {
	var send func(*domain.User, int) error
	switch purpose {
	case PurposeEmailVerification:
		send = s.notifier.SendActivationOTP
	case PurposePasswordReset:
		send = s.notifier.SendPasswordResetOTP
	default:
		return 0, fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}

	code, err := s.generate()
	if err != nil {
		return 0, err
	}
	expiry := s.now().UTC().Add(s.ttl)
	if err := s.repo.SetOTP(ctx, u.UserID, code, expiry); err != nil {
		return 0, err
	}
	u.OTP, u.OTPExpiry = &code, &expiry

	if err := send(u, code); err != nil {
		slog.Error("failed to send otp email", "user_id", u.UserID, "purpose", purpose, "err", err)
	}
	return code, nil
}

func (s *service) VerifyEmail(ctx context.Context, u *domain.User, code int) error {
	if err := s.check(u, code); err != nil {
		return err
	}
	if err := s.repo.VerifyEmail(ctx, u.UserID, code); err != nil {
		return consumeErr(err)
	}
	u.IsEmailVerified = true
	u.OTP, u.OTPExpiry = nil, nil
	return nil
}

func (s *service) VerifyPasswordReset(ctx context.Context, u *domain.User, code int, passwordHash string) error {
	if err := s.check(u, code); err != nil {
		return err
	}
	if err := s.repo.ResetPassword(ctx, u.UserID, code, passwordHash); err != nil {
		return consumeErr(err)
	}
	u.PasswordHash = passwordHash
	u.OTP, u.OTPExpiry = nil, nil
	return nil
}

// check accepts the code up to and including the expiry instant.
func (s *service) check(u *domain.User, code int) error {
	if !u.HasOTP() || *u.OTP != code || s.now().After(*u.OTPExpiry) {
		return domain.ErrInvalidOTP
	}
	return nil
}

// consumeErr turns a lost race on the stored code into the same rejection as a wrong code.
func consumeErr(err error) error {
	if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidOTP
	}
	return err
}
