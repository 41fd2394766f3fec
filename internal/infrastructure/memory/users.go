// Package memory provides process-local credential and token stores for
// development (STORE_BACKEND=memory) and tests. Each method holds the store
// lock for its whole read-modify-write, which gives the same single-row
// atomicity the DynamoDB and Postgres backends provide.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-api-accounts/internal/domain"
)

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if _, ok := r.byID[u.UserID]; ok {
		return fmt.Errorf("user id already exists: %w", domain.ErrConflict)
	}
	r.byID[u.UserID] = cloneUser(u)
	r.byEmail[u.Email] = u.UserID
	return nil
}

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return cloneUser(r.byID[userID]), nil
}

func (r *UserRepo) SetOTP(_ context.Context, userID string, code int, expiry time.Time) error {
	return r.update(userID, func(u *domain.User) error {
		u.OTP = &code
		u.OTPExpiry = &expiry
		return nil
	})
}

func (r *UserRepo) VerifyEmail(_ context.Context, userID string, code int) error {
	return r.update(userID, func(u *domain.User) error {
		if u.OTP == nil || *u.OTP != code {
			return fmt.Errorf("otp no longer matches: %w", domain.ErrConflict)
		}
		u.IsEmailVerified = true
		u.OTP, u.OTPExpiry = nil, nil
		return nil
	})
}

func (r *UserRepo) ResetPassword(_ context.Context, userID string, code int, passwordHash string) error {
	return r.update(userID, func(u *domain.User) error {
		if u.OTP == nil || *u.OTP != code {
			return fmt.Errorf("otp no longer matches: %w", domain.ErrConflict)
		}
		u.PasswordHash = passwordHash
		u.OTP, u.OTPExpiry = nil, nil
		return nil
	})
}

func (r *UserRepo) SetAvatar(_ context.Context, userID, key string) error {
	return r.update(userID, func(u *domain.User) error {
		u.AvatarKey = &key
		return nil
	})
}

func (r *UserRepo) update(userID string, fn func(u *domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	next := cloneUser(u)
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = r.now().UTC()
	r.byID[userID] = next
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.OTP != nil {
		v := *u.OTP
		c.OTP = &v
	}
	if u.OTPExpiry != nil {
		v := *u.OTPExpiry
		c.OTPExpiry = &v
	}
	if u.AvatarKey != nil {
		v := *u.AvatarKey
		c.AvatarKey = &v
	}
	return &c
}
