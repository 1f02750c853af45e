package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/server/auth"
	"github.com/dmitrijs2005/quickmart/internal/server/events"
	"github.com/dmitrijs2005/quickmart/internal/server/models"
)

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

type TokenCodec interface {
	Encode(id *models.Identity, ttl time.Duration) (string, time.Time, error)
	Decode(token string) (*auth.Claims, error)
}

type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, ev events.UserRegistered) error
}

// AuthConfig carries the token and OTP lifetimes.
type AuthConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OtpTTL          time.Duration
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
