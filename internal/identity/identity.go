// Package identity turns bearer tokens into opaque user ids. The ledger never
// sees tokens, only the resolved Identity.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingToken = fmt.Errorf("missing bearer token: %w", apperr.ErrUnauthorized)

type Identity struct {
	UserID string
	// IsStandalone marks users that signed in outside an embedding host app.
	IsStandalone bool
}

type Claims struct {
	Standalone bool `json:"standalone,omitempty"`
	jwt.RegisteredClaims
}

type Resolver struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewResolver(secret, issuer string) *Resolver {
	return &Resolver{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Resolve validates an Authorization header value ("Bearer <jwt>", HS256).
func (r *Resolver) Resolve(authHeader string) (Identity, error) {
	raw := strings.TrimSpace(authHeader)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	} else {
		raw = ""
	}

	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w: %w", apperr.ErrUnauthorized, err)
	}

	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("token has no subject: %w", apperr.ErrUnauthorized)
	}

	return Identity{UserID: claims.Subject, IsStandalone: claims.Standalone}, nil
}

// Issue signs a token for userID. Used by tests and local tooling.
func (r *Resolver) Issue(userID string, standalone bool, ttl time.Duration) (string, error) {
	now := r.now()

	claims := Claims{
		Standalone: standalone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return s, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by the API middleware.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrMissingToken
	}

	return id, nil
}
