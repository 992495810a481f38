// Package auth verifies and mints the HS256 bearer tokens that carry caller identity.
package auth

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/scoutfund/internal/model"
)

// Leeway tolerates clock skew between the identity provider and this service.
const Leeway = 30 * time.Second

// Claims are the registered claims plus the identity fields the service relies on.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Admin bool   `json:"adm,omitempty"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBadSubject   = errors.New("bad subject")
)

// Issue signs a token for id valid for ttl from now.
func Issue(key []byte, id model.Identity, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if len(key) == 0 {
		return "", time.Time{}, errors.New("empty signing key")
	}
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: id.Email,
		Admin: id.Admin,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	return signed, exp, err
}

// Parse verifies an HS256 token and returns the identity it carries.
func Parse(key []byte, token string) (model.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithLeeway(Leeway), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return model.Identity{}, ErrBadSubject
	}
	return model.Identity{AccountID: id, Email: claims.Email, Admin: claims.Admin}, nil
}
