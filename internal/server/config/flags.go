package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/flagx"
)

var serverFlags = []string{"-a", "-prod", "-debug", "-m", "-n", "-s", "-t", "-r", "-o", "-u", "-p", "-b", "-g", "-e", "-R"}

var boolFlags = []string{"-prod", "-debug"}

// parseFlags overlays command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-prod       production posture (strict validation)
//	-debug      debug logging
//	-m string   MongoDB URI
//	-n string   MongoDB database name
//	-s string   JWT HMAC secret key
//	-t int      access token validity, hours
//	-r int      refresh token validity, hours
//	-o int      OTP validity, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-R string   Redis URL for rate limiting
//
// Unknown arguments (including subcommands of the operator CLI) are ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:], serverFlags, boolFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.BoolVar(&config.Production, "prod", config.Production, "production mode")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "debug logging")
	fs.StringVar(&config.MongoURI, "m", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "n", config.MongoDatabase, "MongoDB database name")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessHours := fs.Int("t", int(config.AccessTokenValidityDuration.Hours()), "access token validity (in hours)")
	refreshHours := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh token validity (in hours)")
	otpSeconds := fs.Int("o", int(config.OtpValidityDuration.Seconds()), "OTP validity (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisURL, "R", config.RedisURL, "Redis URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only override lifetimes that were passed explicitly, so sub-hour
	// values from JSON are not truncated.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessHours) * time.Hour
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshHours) * time.Hour
		case "o":
			config.OtpValidityDuration = time.Duration(*otpSeconds) * time.Second
		}
	})
}
