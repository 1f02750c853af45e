package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-prod", "-m", "mongodb://db:27017", "-n", "shop", "-s", "secret",
				"-t", "3", "-r", "24", "-o", "120", "-u", "user", "-p", "password", "-b", "bucket",
				"-g", "us-west-1", "-e", "http://endpoint", "-R", "redis://cache:6379/0",
			},
			expected: &Config{
				HTTPAddr:                     "127.0.0.1:9090",
				Production:                   true,
				MongoURI:                     "mongodb://db:27017",
				MongoDatabase:                "shop",
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  3 * time.Hour,
				RefreshTokenValidityDuration: 24 * time.Hour,
				OtpValidityDuration:          120 * time.Second,
				S3RootUser:                   "user",
				S3RootPassword:               "password",
				S3Bucket:                     "bucket",
				S3Region:                     "us-west-1",
				S3BaseEndpoint:               "http://endpoint",
				RedisURL:                     "redis://cache:6379/0",
			},
		},
		{
			name: "unset lifetimes keep their value",
			args: []string{"cmd", "-a", ":1"},
			expected: &Config{
				HTTPAddr:                     ":1",
				AccessTokenValidityDuration:  30 * time.Minute,
				RefreshTokenValidityDuration: 90 * time.Minute,
				OtpValidityDuration:          45 * time.Second,
			},
		},
		{
			name:        "bad int",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{
				AccessTokenValidityDuration:  30 * time.Minute,
				RefreshTokenValidityDuration: 90 * time.Minute,
				OtpValidityDuration:          45 * time.Second,
			}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestParseFlags_SubcommandIgnored(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"quickmartctl", "-prod", "seed-users", "-n", "shop"}

	config := &Config{}
	require.NotPanics(t, func() { parseFlags(config) })
	assert.True(t, config.Production)
	assert.Equal(t, "shop", config.MongoDatabase)
}
