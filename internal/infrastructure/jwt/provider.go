package jwtinfra

import (
	"errors"
	"time"

	"github.com/go-api-accounts/internal/domain"
	"github.com/go-api-accounts/internal/pkg/id"
	"github.com/go-api-accounts/internal/pkg/token"
	"github.com/golang-jwt/jwt/v5"
)

// refreshNonceLen is the length of the random "data" claim on refresh tokens.
const refreshNonceLen = 10

// expPrecision is the resolution of exp claims. Whole seconds would let a token expire
// up to a second before its TTL.
const expPrecision = time.Microsecond

func init() {
	// exp is written with nine fractional digits and rounded back to expPrecision in
	// Verify, so float parsing of the claim cannot move the boundary.
	jwt.TimePrecision = time.Nanosecond
}

// Claims holds the JWT payload fields. Access tokens carry UserID and the id of the
// token row they belong to; refresh tokens carry only Data and are bound to a user by
// the token store.
type Claims struct {
	UserID  string `json:"user_id,omitempty"`
	TokenID string `json:"sid,omitempty"`
	Data    string `json:"data,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a shared server secret.
type Provider struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Provider)

// WithClock replaces the time source used for exp claims and verification.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(secret []byte, opts ...Option) (*Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	p := &Provider{
		secret: secret,
		now:    time.Now,
		// Expiry is checked in Verify against p.now so the boundary is inclusive.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// IssueAccess signs an access token for userID, tied to the token row tokenID.
func (p *Provider) IssueAccess(userID, tokenID string, ttl time.Duration) (string, error) {
	return p.sign(Claims{
		UserID:  userID,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: p.expiry(ttl),
			ID:        id.New(),
		},
	})
}

func (p *Provider) IssueRefresh(ttl time.Duration) (string, error) {
	nonce, err := token.RandomString(refreshNonceLen)
	if err != nil {
		return "", err
	}
	return p.sign(Claims{
		Data: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: p.expiry(ttl),
		},
	})
}

// expiry is now+ttl rounded up to expPrecision, so a token never expires early.
func (p *Provider) expiry(ttl time.Duration) *jwt.NumericDate {
	exp := p.now().Add(ttl)
	if t := exp.Truncate(expPrecision); !t.Equal(exp) {
		exp = t.Add(expPrecision)
	}
	return jwt.NewNumericDate(exp)
}

// Verify checks signature and expiry. Every failure is reported as
// domain.ErrInvalidOrExpiredToken.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := p.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if claims.ExpiresAt == nil || p.now().After(claims.ExpiresAt.Round(expPrecision)) {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	return claims, nil
}

func (p *Provider) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
