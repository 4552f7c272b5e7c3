// Package identity resolves bearer tokens into actor identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// Claims carries the actor identity inside a signed token
type Claims struct {
	UserID string `json:"userID"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Config configures token signing and verification
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// JWTResolver verifies HS256 tokens and issues new ones
type JWTResolver struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTResolver creates a resolver; the secret must not be empty
func NewJWTResolver(cfg Config) (*JWTResolver, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTResolver{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for actor
func (r *JWTResolver) Issue(actor entity.ActorIdentity) (string, error) {
	if actor.ID == "" {
		return "", errors.New("actor id is required")
	}
	now := r.now()
	claims := Claims{
		UserID: actor.ID,
		Name:   actor.Name,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve verifies token and returns its actor; any failure is ErrUnauthenticated
func (r *JWTResolver) Resolve(ctx context.Context, token string) (*entity.ActorIdentity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", approval.ErrUnauthenticated)
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", approval.ErrUnauthenticated)
	}
	if r.issuer != "" && !claims.VerifyIssuer(r.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", approval.ErrUnauthenticated)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no subject", approval.ErrUnauthenticated)
	}

	return &entity.ActorIdentity{
		ID:   claims.UserID,
		Role: entity.RoleKey(claims.Role),
		Name: claims.Name,
	}, nil
}

var _ port.IdentityResolver = (*JWTResolver)(nil)
