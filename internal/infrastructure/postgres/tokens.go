package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-accounts/internal/domain"
	"github.com/jmoiron/sqlx"
)

const tokenColumns = `id, user_id, access, refresh, created_at, updated_at`

type TokenRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db, now: time.Now}
}

func (r *TokenRepo) Put(ctx context.Context, t *domain.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (`+tokenColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.TokenID, t.UserID, t.Access, t.Refresh, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return domain.StorageError("put token", err)
	}
	return nil
}

func (r *TokenRepo) Get(ctx context.Context, tokenID string) (*domain.Token, error) {
	return r.getOne(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, tokenID)
}

func (r *TokenRepo) GetByAccess(ctx context.Context, access string) (*domain.Token, error) {
	return r.getOne(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE access = $1 LIMIT 1`, access)
}

func (r *TokenRepo) GetByRefresh(ctx context.Context, refresh string) (*domain.Token, error) {
	return r.getOne(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE refresh = $1 LIMIT 1`, refresh)
}

// Rotate replaces the pair on tokenID only while the row still holds oldRefresh.
func (r *TokenRepo) Rotate(ctx context.Context, tokenID, oldRefresh, access, refresh string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tokens SET access = $3, refresh = $4, updated_at = $5 WHERE id = $1 AND refresh = $2`,
		tokenID, oldRefresh, access, refresh, r.now().UTC())
	if err != nil {
		return domain.StorageError("rotate token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StorageError("rotate token", err)
	}
	if n > 0 {
		return nil
	}
	return missingOrConflict(ctx, r.db, "rotate token", `SELECT EXISTS (SELECT 1 FROM tokens WHERE id = $1)`, tokenID)
}

// Delete removes tokenID only while it still holds access.
func (r *TokenRepo) Delete(ctx context.Context, tokenID, access string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1 AND access = $2`, tokenID, access); err != nil {
		return domain.StorageError("delete token", err)
	}
	return nil
}

func (r *TokenRepo) DeleteByAccess(ctx context.Context, access string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE access = $1`, access); err != nil {
		return domain.StorageError("delete token", err)
	}
	return nil
}

func (r *TokenRepo) getOne(ctx context.Context, query, arg string) (*domain.Token, error) {
	var t domain.Token
	if err := r.db.GetContext(ctx, &t, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
		}
		return nil, domain.StorageError("get token", err)
	}
	return &t, nil
}
