// Package config handles configuration for the quickmart server and
// operator CLI: defaults, a JSON overlay, environment variables (optionally
// from a .env file) and command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSecretKey is the development signing secret. Validate rejects it
// in production.
const DefaultSecretKey = "secretKey"

// Config holds runtime settings.
//
// Token lifetimes are absolute durations; the env and flag layers accept
// them in hours (access/refresh) and seconds (OTP).
type Config struct {
	HTTPAddr   string
	Production bool
	Debug      bool

	MongoURI      string
	MongoDatabase string

	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	OtpValidityDuration          time.Duration

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPRetries  int

	RedisURL          string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	InitialUsers InitialUsers
}

// InitialUsers names the accounts created by "quickmartctl seed-users".
// A pair with an empty username or password is skipped.
type InitialUsers struct {
	CustomerUsername string
	CustomerPassword string
	SellerUsername   string
	SellerPassword   string
	AdminUsername    string
	AdminPassword    string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret and S3 credentials are insecure and must be overridden.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.Production = false
	c.Debug = true
	c.MongoURI = "mongodb://localhost:27017"
	c.MongoDatabase = "quickmart"
	c.SecretKey = DefaultSecretKey
	c.AccessTokenValidityDuration = 1 * time.Hour
	c.RefreshTokenValidityDuration = 2 * time.Hour
	c.OtpValidityDuration = 600 * time.Second
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "users"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.SMTPHost = "smtp.gmail.com"
	c.SMTPPort = 587
	c.SMTPRetries = 3
	c.RateLimitRequests = 10
	c.RateLimitWindow = time.Minute
}

// LoadConfig builds a Config from defaults, then the JSON file given with
// -c/-config, then the environment, then command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate reports settings that must not reach a running server.
func (c *Config) Validate() error {
	var errs []error

	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token lifetime must be positive"))
	}
	if c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("refresh token lifetime must be positive"))
	}
	if c.OtpValidityDuration <= 0 {
		errs = append(errs, errors.New("otp lifetime must be positive"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}
	if c.RateLimitRequests < 0 || (c.RateLimitRequests > 0 && c.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("invalid rate limit settings"))
	}

	if c.Production {
		if c.SecretKey == DefaultSecretKey {
			errs = append(errs, errors.New("default secret key is not allowed in production"))
		}
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			errs = append(errs, errors.New("smtp credentials are required in production"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
