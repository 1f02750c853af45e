// Package auth implements the access token codec: HS256-signed JWTs whose
// claims carry the public user fields plus sub and exp.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role          models.Role `json:"role"`
	Fullname      string      `json:"fullname,omitempty"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	EmailVerified bool        `json:"email_verified"`
}

type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret, now: time.Now}
}

// WithClock replaces the time source used for iat, exp and validation.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Encode signs claims for the given identity valid for ttl and returns the
// token along with its expiry instant.
func (c *TokenCodec) Encode(id *models.Identity, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:          id.Role,
		Fullname:      id.Fullname,
		Username:      id.Username,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Decode verifies signature and expiry. It returns common.ErrTokenExpired
// for a well-signed token past its exp and common.ErrInvalidToken for
// anything else that fails.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
