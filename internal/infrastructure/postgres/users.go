package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-accounts/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

const userColumns = `id, email, first_name, last_name, password_hash, is_email_verified,
	is_staff, is_superuser, is_farmer, terms_agreement, avatar_key, otp, otp_expiry, created_at, updated_at`

type UserRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db, now: time.Now}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		u.UserID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsEmailVerified,
		u.IsStaff, u.IsSuperuser, u.IsFarmer, u.TermsAgreement, u.AvatarKey, u.OTP, u.OTPExpiry, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return domain.StorageError("create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepo) SetOTP(ctx context.Context, userID string, code int, expiry time.Time) error {
	return r.exec(ctx, "set otp", userID,
		`UPDATE users SET otp = $2, otp_expiry = $3, updated_at = $4 WHERE id = $1`,
		userID, code, expiry.UTC(), r.now().UTC())
}

// VerifyEmail flips the verified flag and clears the OTP in one statement, only while the
// stored code is still code.
func (r *UserRepo) VerifyEmail(ctx context.Context, userID string, code int) error {
	return r.exec(ctx, "verify email", userID,
		`UPDATE users SET is_email_verified = TRUE, otp = NULL, otp_expiry = NULL, updated_at = $3
		 WHERE id = $1 AND otp = $2`,
		userID, code, r.now().UTC())
}

func (r *UserRepo) ResetPassword(ctx context.Context, userID string, code int, passwordHash string) error {
	return r.exec(ctx, "reset password", userID,
		`UPDATE users SET password_hash = $3, otp = NULL, otp_expiry = NULL, updated_at = $4
		 WHERE id = $1 AND otp = $2`,
		userID, code, passwordHash, r.now().UTC())
}

func (r *UserRepo) SetAvatar(ctx context.Context, userID, key string) error {
	return r.exec(ctx, "set avatar", userID,
		`UPDATE users SET avatar_key = $2, updated_at = $3 WHERE id = $1`,
		userID, key, r.now().UTC())
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, domain.StorageError("get user", err)
	}
	return &u, nil
}

// exec runs a single-row update. When nothing matched it tells a missing user apart from a
// failed condition.
func (r *UserRepo) exec(ctx context.Context, op, userID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.StorageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StorageError(op, err)
	}
	if n > 0 {
		return nil
	}
	return missingOrConflict(ctx, r.db, op, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID)
}

func missingOrConflict(ctx context.Context, db *sqlx.DB, op, existsQuery, id string) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, existsQuery, id); err != nil {
		return domain.StorageError(op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, domain.ErrConflict)
}
