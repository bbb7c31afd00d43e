// Package auth issues and validates the HS256 access tokens handed to clients.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload: the registered sub/aud/exp claims plus
// the caller's role. The subject is the username.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// Issuer signs and parses access tokens with a shared secret.
type Issuer struct {
	secret   []byte
	audience string
	ttl      time.Duration
	now      func() time.Time
}

type IssuerOption func(*Issuer)

// WithClock overrides time.Now for both issuing and validation.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret []byte, audience string, ttl time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:   secret,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// TTL is the access token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs an access token for user and returns it with its lifetime in seconds.
func (i *Issuer) Issue(user *models.User) (string, int64, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserName,
			Audience:  jwt.ClaimStrings{i.audience},
			ExpiresAt: jwt.NewNumericDate(i.now().Add(i.ttl)),
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}

	return tokenString, int64(i.ttl / time.Second), nil
}

// Parse validates signature, algorithm, audience and expiry.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// yields common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
