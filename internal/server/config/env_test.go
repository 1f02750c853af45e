package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Overlay(t *testing.T) {
	noDotEnv(t)

	t.Setenv("JWT_SECRET_KEY", "env-secret")
	t.Setenv("JWT_EXPIRES_HOURS", "4")
	t.Setenv("REFRESH_TOKEN_EXPIRES_HOURS", "48")
	t.Setenv("OTP_EXPIRES_SECONDS", "300")
	t.Setenv("MONGODB_URI", "mongodb://mongo:27017")
	t.Setenv("MONGODB_NAME", "quickmart_test")
	t.Setenv("PRODUCTION", "true")
	t.Setenv("GMAIL_SENDER_EMAIL", "shop@example.com")
	t.Setenv("GMAIL_SENDER_PASSWORD", "app-password")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("INITIAL_SELLER_USER_USERNAME", "first_seller")
	t.Setenv("INITIAL_SELLER_USER_PASSWORD", "seller-pass")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "env-secret", c.SecretKey)
	assert.Equal(t, 4*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 48*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 5*time.Minute, c.OtpValidityDuration)
	assert.Equal(t, "mongodb://mongo:27017", c.MongoURI)
	assert.Equal(t, "quickmart_test", c.MongoDatabase)
	assert.True(t, c.Production)
	assert.Equal(t, "shop@example.com", c.SMTPUsername)
	assert.Equal(t, "app-password", c.SMTPPassword)
	assert.Equal(t, 30*time.Second, c.RateLimitWindow)
	assert.Equal(t, "first_seller", c.InitialUsers.SellerUsername)
	assert.Equal(t, "seller-pass", c.InitialUsers.SellerPassword)

	// untouched values keep their defaults
	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, "users", c.S3Bucket)
}

func TestParseEnv_MalformedPanics(t *testing.T) {
	noDotEnv(t)
	t.Setenv("JWT_EXPIRES_HOURS", "one")

	var c Config
	require.Panics(t, func() { parseEnv(&c) })
}
