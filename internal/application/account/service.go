package account

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-api-accounts/internal/application/otp"
	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

const (
	avatarURLTTL = time.Hour
	// sniffLen is how much of an upload http.DetectContentType looks at.
	sniffLen = 512
)

// Service implements the account flows around the OTP engine: registration, email
// verification, password reset, avatars and seeding.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	VerifyEmail(ctx context.Context, req domain.VerifyOTPRequest) (alreadyVerified bool, err error)
	ResendVerificationEmail(ctx context.Context, email string) (alreadyVerified bool, err error)
	SendPasswordResetOTP(ctx context.Context, email string) error
	SetNewPassword(ctx context.Context, req domain.SetNewPasswordRequest) error
	UploadAvatar(ctx context.Context, u *domain.User, upload domain.AvatarUpload) (*domain.User, error)
	AvatarURL(ctx context.Context, u *domain.User) string
	EnsureUser(ctx context.Context, seed domain.SeedUser) (u *domain.User, created bool, err error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetAvatar(ctx context.Context, userID, key string) error
}

type notifier interface {
	SendWelcome(u *domain.User) error
	SendPasswordResetSuccess(u *domain.User) error
}

type avatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, e domain.AccountEvent) error
}

type service struct {
	repo             userStore
	otp              otp.Service
	notifier         notifier
	avatars          avatarStore
	events           eventPublisher
	defaultAvatarURL string
	bcryptCost       int
	now              func() time.Time
}

type ServiceDeps struct {
	UserRepo         userStore
	OTP              otp.Service
	Notifier         notifier
	Avatars          avatarStore
	Events           eventPublisher
	DefaultAvatarURL string
	BcryptCost       int
	Now              func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:             deps.UserRepo,
		otp:              deps.OTP,
		notifier:         deps.Notifier,
		avatars:          deps.Avatars,
		events:           deps.Events,
		defaultAvatarURL: deps.DefaultAvatarURL,
		bcryptCost:       deps.BcryptCost,
		now:              deps.Now,
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func emailTaken() error {
	return &domain.FieldError{Field: "email", Message: "Email already registered!", Err: domain.ErrConflict}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, emailTaken()
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	u, err := s.newUser(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	u.TermsAgreement = req.TermsAgreement
	u.IsFarmer = true
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, emailTaken()
		}
		return nil, err
	}

	if _, err := s.otp.Issue(ctx, u, otp.PurposeEmailVerification); err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventAccountRegistered, u)
	return u, nil
}

func (s *service) VerifyEmail(ctx context.Context, req domain.VerifyOTPRequest) (bool, error) {
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return false, err
	}
	if u.IsEmailVerified {
		return true, nil
	}
	if err := s.otp.VerifyEmail(ctx, u, req.OTP); err != nil {
		return false, err
	}
	if err := s.notifier.SendWelcome(u); err != nil {
		slog.Warn("failed to send welcome email", "user_id", u.UserID, "err", err)
	}
	s.publish(ctx, domain.EventAccountEmailVerified, u)
	return false, nil
}

func (s *service) ResendVerificationEmail(ctx context.Context, email string) (bool, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if u.IsEmailVerified {
		return true, nil
	}
	_, err = s.otp.Issue(ctx, u, otp.PurposeEmailVerification)
	return false, err
}

func (s *service) SendPasswordResetOTP(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.otp.Issue(ctx, u, otp.PurposePasswordReset)
	return err
}

func (s *service) SetNewPassword(ctx context.Context, req domain.SetNewPasswordRequest) error {
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.otp.VerifyPasswordReset(ctx, u, req.OTP, string(hash)); err != nil {
		return err
	}
	if err := s.notifier.SendPasswordResetSuccess(u); err != nil {
		slog.Warn("failed to send password reset confirmation", "user_id", u.UserID, "err", err)
	}
	s.publish(ctx, domain.EventAccountPasswordReset, u)
	return nil
}

// sniffImage detects the content type from the leading bytes of r. The declared
// multipart type is ignored. The returned reader replays the sniffed prefix.
func sniffImage(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", &domain.FieldError{Field: "avatar", Message: "Upload a valid image", Err: domain.ErrBadRequest}
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", &domain.FieldError{Field: "avatar", Message: "Upload a valid image", Err: domain.ErrBadRequest}
	}
	return io.MultiReader(bytes.NewReader(head), r), contentType, nil
}

func (s *service) UploadAvatar(ctx context.Context, u *domain.User, upload domain.AvatarUpload) (*domain.User, error) {
	body, contentType, err := sniffImage(upload.Body)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("avatars/%s/%s%s", u.UserID, id.New(), strings.ToLower(path.Ext(upload.Filename)))
	if err := s.avatars.Upload(ctx, key, body, contentType); err != nil {
		return nil, domain.StorageError("upload avatar", err)
	}
	if err := s.repo.SetAvatar(ctx, u.UserID, key); err != nil {
		return nil, err
	}

	if old := u.AvatarKey; old != nil {
		if err := s.avatars.Delete(ctx, *old); err != nil {
			slog.Warn("failed to delete previous avatar", "user_id", u.UserID, "key", *old, "err", err)
		}
	}
	u.AvatarKey = &key
	return u, nil
}

// AvatarURL returns a presigned URL for the user's avatar, or the default avatar when none
// is set or signing fails.
func (s *service) AvatarURL(ctx context.Context, u *domain.User) string {
	if u.AvatarKey == nil {
		return s.defaultAvatarURL
	}
	url, err := s.avatars.PresignedURL(ctx, *u.AvatarKey, avatarURLTTL)
	if err != nil {
		slog.Warn("failed to presign avatar url", "user_id", u.UserID, "err", err)
		return s.defaultAvatarURL
	}
	return url
}

// EnsureUser returns the account for seed.Email, creating it when missing. Seeded accounts
// skip email verification.
func (s *service) EnsureUser(ctx context.Context, seed domain.SeedUser) (*domain.User, bool, error) {
	if u, err := s.repo.GetByEmail(ctx, seed.Email); err == nil {
		return u, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	if seed.Password == "" {
		return nil, false, fmt.Errorf("password for %s is empty: %w", seed.Email, domain.ErrBadRequest)
	}

	u, err := s.newUser(seed.Email, seed.Password, seed.FirstName, seed.LastName)
	if err != nil {
		return nil, false, err
	}
	u.IsEmailVerified = true
	u.IsStaff = seed.IsStaff
	u.IsSuperuser = seed.IsSuperuser
	u.TermsAgreement = true
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *service) newUser(email, password, firstName, lastName string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &domain.User{
		UserID:       id.New(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *service) publish(ctx context.Context, eventType string, u *domain.User) {
	err := s.events.Publish(ctx, domain.AccountEvent{
		Type:       eventType,
		UserID:     u.UserID,
		Email:      u.Email,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to publish account event", "type", eventType, "user_id", u.UserID, "err", err)
	}
}
