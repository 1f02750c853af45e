package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envConfig mirrors the environment variable names used by the deployment.
// Pointer fields stay nil when the variable is unset, so defaults and the
// JSON overlay survive.
type envConfig struct {
	HTTPAddr   *string `env:"HTTP_ADDR"`
	Production *bool   `env:"PRODUCTION"`
	Debug      *bool   `env:"DEBUG"`

	MongoURI      *string `env:"MONGODB_URI"`
	MongoDatabase *string `env:"MONGODB_NAME"`

	SecretKey         *string `env:"JWT_SECRET_KEY"`
	AccessTokenHours  *int    `env:"JWT_EXPIRES_HOURS"`
	RefreshTokenHours *int    `env:"REFRESH_TOKEN_EXPIRES_HOURS"`
	OtpSeconds        *int    `env:"OTP_EXPIRES_SECONDS"`

	S3RootUser     *string `env:"MINIO_ACCESS_KEY"`
	S3RootPassword *string `env:"MINIO_SECRET_KEY"`
	S3Bucket       *string `env:"MINIO_BUCKET"`
	S3Region       *string `env:"MINIO_REGION"`
	S3BaseEndpoint *string `env:"MINIO_ENDPOINT"`

	SMTPHost     *string `env:"SMTP_HOST"`
	SMTPPort     *int    `env:"SMTP_PORT"`
	SMTPUsername *string `env:"GMAIL_SENDER_EMAIL"`
	SMTPPassword *string `env:"GMAIL_SENDER_PASSWORD"`
	SMTPRetries  *int    `env:"SMTP_RETRIES"`

	RedisURL               *string `env:"REDIS_URL"`
	RateLimitRequests      *int    `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindowSeconds *int    `env:"RATE_LIMIT_WINDOW_SECONDS"`

	InitialCustomerUsername *string `env:"INITIAL_CUSTOMER_USER_USERNAME"`
	InitialCustomerPassword *string `env:"INITIAL_CUSTOMER_USER_PASSWORD"`
	InitialSellerUsername   *string `env:"INITIAL_SELLER_USER_USERNAME"`
	InitialSellerPassword   *string `env:"INITIAL_SELLER_USER_PASSWORD"`
	InitialAdminUsername    *string `env:"INITIAL_ADMIN_USER_USERNAME"`
	InitialAdminPassword    *string `env:"INITIAL_ADMIN_USER_PASSWORD"`
}

// loadDotEnv is a test seam for godotenv.Load.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays environment variables, after loading a .env file from
// the working directory if one exists. A malformed variable panics.
func parseEnv(config *Config) {
	_ = loadDotEnv()

	var e envConfig
	if err := env.Parse(&e); err != nil {
		panic(err)
	}
	e.applyTo(config)
}

func (e *envConfig) applyTo(c *Config) {
	setPtr(&c.HTTPAddr, e.HTTPAddr)
	setPtr(&c.Production, e.Production)
	setPtr(&c.Debug, e.Debug)
	setPtr(&c.MongoURI, e.MongoURI)
	setPtr(&c.MongoDatabase, e.MongoDatabase)
	setPtr(&c.SecretKey, e.SecretKey)
	if e.AccessTokenHours != nil {
		c.AccessTokenValidityDuration = time.Duration(*e.AccessTokenHours) * time.Hour
	}
	if e.RefreshTokenHours != nil {
		c.RefreshTokenValidityDuration = time.Duration(*e.RefreshTokenHours) * time.Hour
	}
	if e.OtpSeconds != nil {
		c.OtpValidityDuration = time.Duration(*e.OtpSeconds) * time.Second
	}
	setPtr(&c.S3RootUser, e.S3RootUser)
	setPtr(&c.S3RootPassword, e.S3RootPassword)
	setPtr(&c.S3Bucket, e.S3Bucket)
	setPtr(&c.S3Region, e.S3Region)
	setPtr(&c.S3BaseEndpoint, e.S3BaseEndpoint)
	setPtr(&c.SMTPHost, e.SMTPHost)
	setPtr(&c.SMTPPort, e.SMTPPort)
	setPtr(&c.SMTPUsername, e.SMTPUsername)
	setPtr(&c.SMTPPassword, e.SMTPPassword)
	setPtr(&c.SMTPRetries, e.SMTPRetries)
	setPtr(&c.RedisURL, e.RedisURL)
	setPtr(&c.RateLimitRequests, e.RateLimitRequests)
	if e.RateLimitWindowSeconds != nil {
		c.RateLimitWindow = time.Duration(*e.RateLimitWindowSeconds) * time.Second
	}
	setPtr(&c.InitialUsers.CustomerUsername, e.InitialCustomerUsername)
	setPtr(&c.InitialUsers.CustomerPassword, e.InitialCustomerPassword)
	setPtr(&c.InitialUsers.SellerUsername, e.InitialSellerUsername)
	setPtr(&c.InitialUsers.SellerPassword, e.InitialSellerPassword)
	setPtr(&c.InitialUsers.AdminUsername, e.InitialAdminUsername)
	setPtr(&c.InitialUsers.AdminPassword, e.InitialAdminPassword)
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
