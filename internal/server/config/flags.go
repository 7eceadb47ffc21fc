package config

import (
	"flag"
	"os"
	"time"

	"github.com/mpopescu/famvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g., ":8080")
//	-d string            PostgreSQL DSN
//	-s string            JWT signing secret
//	-k string            field encryption key
//	-i string            field encryption IV
//	-t int               access token validity, minutes
//	-r int               refresh token validity, minutes
//	-v int               revocation retention, minutes
//	-admin-user string   bootstrap admin username
//	-admin-pass string   bootstrap admin password
//	-u/-p/-b/-g/-e       S3 user / password / bucket / region / endpoint
//	-o string            comma-separated CORS origins
//
// Arguments are pre-filtered with flagx.FilterArgs so flags owned by other
// packages (such as -c/-config) pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-k", "-i", "-t", "-r", "-v",
		"-admin-user", "-admin-pass",
		"-u", "-p", "-b", "-g", "-e", "-o",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "JWT signing secret")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "field encryption key")
	fs.StringVar(&config.EncryptionIV, "i", config.EncryptionIV, "field encryption IV")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidity.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidity.Minutes()), "refresh token validity (in minutes)")
	revocationRetention := fs.Int("v", int(config.RevocationRetention.Minutes()), "revocation retention (in minutes)")

	fs.StringVar(&config.AdminUsername, "admin-user", config.AdminUsername, "bootstrap admin username")
	fs.StringVar(&config.AdminPassword, "admin-pass", config.AdminPassword, "bootstrap admin password")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.CORSAllowedOrigins, "o", config.CORSAllowedOrigins, "comma-separated CORS allowed origins")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// The minute flags overwrite only when explicitly passed; otherwise a
	// JSON-supplied duration with sub-minute precision would be truncated to
	// whole minutes by the round-trip.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["t"] {
		config.AccessTokenValidity = time.Duration(*accessTokenValidity) * time.Minute
	}
	if set["r"] {
		config.RefreshTokenValidity = time.Duration(*refreshTokenValidity) * time.Minute
	}
	if set["v"] {
		config.RevocationRetention = time.Duration(*revocationRetention) * time.Minute
	}
}
