package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-api-accounts/internal/domain"
	jwtinfra "github.com/go-api-accounts/internal/infrastructure/jwt"
	"github.com/go-api-accounts/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// Service decides who a bearer token belongs to and manages the token pairs behind it.
type Service interface {
	Resolve(ctx context.Context, bearer string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (*domain.TokenPair, error)
	Logout(ctx context.Context, access string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.Token) error
	Get(ctx context.Context, tokenID string) (*domain.Token, error)
	GetByAccess(ctx context.Context, access string) (*domain.Token, error)
	GetByRefresh(ctx context.Context, refresh string) (*domain.Token, error)
	Rotate(ctx context.Context, tokenID, oldRefresh, access, refresh string) error
	Delete(ctx context.Context, tokenID, access string) error
	DeleteByAccess(ctx context.Context, access string) error
}

type tokenCodec interface {
	IssueAccess(userID, tokenID string, ttl time.Duration) (string, error)
	IssueRefresh(ttl time.Duration) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type service struct {
	userRepo   userStore
	tokenRepo  tokenStore
	codec      tokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type ServiceDeps struct {
	UserRepo    userStore
	TokenRepo   tokenStore
	JWTProvider tokenCodec
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		userRepo:   deps.UserRepo,
		tokenRepo:  deps.TokenRepo,
		codec:      deps.JWTProvider,
		accessTTL:  deps.AccessTTL,
		refreshTTL: deps.RefreshTTL,
		now:        deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// dummyHash is compared against when the email is unknown so that both
// credential failures cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

// Resolve authenticates bearer. The token must verify, carry a user_id claim, still be the
// current access value of a stored row, and that row must belong to the same user.
func (s *service) Resolve(ctx context.Context, bearer string) (*domain.User, error) {
	if bearer == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	claims, err := s.codec.Verify(bearer)
	if err != nil || claims.UserID == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	tok, err := s.lookup(ctx, claims, bearer)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrInvalidOrExpiredToken)
	}
	if tok.Access != bearer || tok.UserID != claims.UserID {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	u, err := s.userRepo.Get(ctx, tok.UserID)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrInvalidOrExpiredToken)
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsEmailVerified {
		return nil, domain.ErrUnverifiedAccount
	}

	tokenID := id.New()
	pair, err := s.mint(u.UserID, tokenID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	err = s.tokenRepo.Put(ctx, &domain.Token{
		TokenID:   tokenID,
		UserID:    u.UserID,
		Access:    pair.Access,
		Refresh:   pair.Refresh,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Refresh rotates the pair stored under refresh. Only one caller can rotate a given refresh
// value; the others see ErrInvalidOrExpiredToken.
func (s *service) Refresh(ctx context.Context, refresh string) (*domain.TokenPair, error) {
	tok, err := s.tokenRepo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrInvalidOrExpiredToken)
	}
	if _, err := s.codec.Verify(refresh); err != nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	pair, err := s.mint(tok.UserID, tok.TokenID)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Rotate(ctx, tok.TokenID, refresh, pair.Access, pair.Refresh); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, notFoundAs(err, domain.ErrInvalidOrExpiredToken)
	}
	return pair, nil
}

// Logout deletes the row holding access. Logging out twice is not an error.
func (s *service) Logout(ctx context.Context, access string) error {
	if claims, err := s.codec.Verify(access); err == nil && claims.TokenID != "" {
		return s.tokenRepo.Delete(ctx, claims.TokenID, access)
	}
	return s.tokenRepo.DeleteByAccess(ctx, access)
}

// lookup reads the row named by the sid claim with a key lookup. Tokens minted without
// a sid claim fall back to the access-value index.
func (s *service) lookup(ctx context.Context, claims *jwtinfra.Claims, bearer string) (*domain.Token, error) {
	if claims.TokenID != "" {
		return s.tokenRepo.Get(ctx, claims.TokenID)
	}
	return s.tokenRepo.GetByAccess(ctx, bearer)
}

func (s *service) mint(userID, tokenID string) (*domain.TokenPair, error) {
	access, err := s.codec.IssueAccess(userID, tokenID, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func notFoundAs(err, target error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return target
	}
	return err
}
