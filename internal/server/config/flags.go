package config

import (
	"flag"
	"os"
	"time"

	"github.com/greenloop/backend/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   Redis address
//	-s string   access token HMAC secret
//	-k string   refresh token HMAC secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u int      cached user TTL, minutes
//	-b string   Airtable base URL
//	-p string   Airtable API key
//	-g string   Airtable base ID
//	-e string   Airtable users table name
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integer minutes and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-t", "-r", "-u", "-b", "-p", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.RedisAddr, "d", config.RedisAddr, "redis address")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "k", config.RefreshTokenSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	userCacheTTL := fs.Int("u", int(config.UserCacheTTL.Minutes()), "user_cache_ttl (in minutes)")

	fs.StringVar(&config.AirtableBaseURL, "b", config.AirtableBaseURL, "airtable base URL")
	fs.StringVar(&config.AirtableAPIKey, "p", config.AirtableAPIKey, "airtable API key")
	fs.StringVar(&config.AirtableBaseID, "g", config.AirtableBaseID, "airtable base ID")
	fs.StringVar(&config.AirtableUsersTable, "e", config.AirtableUsersTable, "airtable users table")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.UserCacheTTL = time.Duration(*userCacheTTL) * time.Minute
}
