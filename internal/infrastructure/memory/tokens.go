package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-api-accounts/internal/domain"
)

type TokenRepo struct {
	mu   sync.RWMutex
	rows map[string]*domain.Token
	now  func() time.Time
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{rows: make(map[string]*domain.Token), now: time.Now}
}

func (r *TokenRepo) Put(_ context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.rows[t.TokenID] = &c
	return nil
}

func (r *TokenRepo) Get(_ context.Context, tokenID string) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.rows[tokenID]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (r *TokenRepo) GetByAccess(_ context.Context, access string) (*domain.Token, error) {
	return r.find(func(t *domain.Token) bool { return t.Access == access })
}

func (r *TokenRepo) GetByRefresh(_ context.Context, refresh string) (*domain.Token, error) {
	return r.find(func(t *domain.Token) bool { return t.Refresh == refresh })
}

// Rotate swaps in a new pair only while the row still holds oldRefresh.
func (r *TokenRepo) Rotate(_ context.Context, tokenID, oldRefresh, access, refresh string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[tokenID]
	if !ok {
		return fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	if t.Refresh != oldRefresh {
		return fmt.Errorf("refresh token already rotated: %w", domain.ErrConflict)
	}
	next := *t
	next.Access, next.Refresh = access, refresh
	next.UpdatedAt = r.now().UTC()
	r.rows[tokenID] = &next
	return nil
}

// Delete removes tokenID only while it still holds access.
func (r *TokenRepo) Delete(_ context.Context, tokenID, access string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[tokenID]; ok && t.Access == access {
		delete(r.rows, tokenID)
	}
	return nil
}

func (r *TokenRepo) DeleteByAccess(_ context.Context, access string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tokenID, t := range r.rows {
		if t.Access == access {
			delete(r.rows, tokenID)
		}
	}
	return nil
}

func (r *TokenRepo) find(match func(*domain.Token) bool) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.rows {
		if match(t) {
			c := *t
			return &c, nil
		}
	}
	return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
}
