// Package config handles configuration for the backend server, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the greenloop backend.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - RedisAddr / RedisPassword / RedisDB: key-value cache connection.
//   - AccessTokenSecret / RefreshTokenSecret: distinct HMAC secrets for the
//     two token kinds (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - UserCacheTTL: lifetime of cached user snapshots, independent of token expiry.
//   - CacheOpTimeout: upper bound on any single cache interaction on the
//     hot validation path.
//   - AirtableBaseURL / AirtableAPIKey / AirtableBaseID / AirtableUsersTable:
//     credential store access.
type Config struct {
	EndpointAddrHTTP             string
	RedisAddr                    string
	RedisPassword                string
	RedisDB                      int
	AccessTokenSecret            string
	RefreshTokenSecret           string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	UserCacheTTL                 time.Duration
	CacheOpTimeout               time.Duration
	AirtableBaseURL              string
	AirtableAPIKey               string
	AirtableBaseID               string
	AirtableUsersTable           string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPassword = ""
	c.RedisDB = 0
	c.AccessTokenSecret = "accessSecret"
	c.RefreshTokenSecret = "refreshSecret"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.UserCacheTTL = 1 * time.Hour
	c.CacheOpTimeout = 500 * time.Millisecond
	c.AirtableBaseURL = "https://api.airtable.com"
	c.AirtableAPIKey = ""
	c.AirtableBaseID = ""
	c.AirtableUsersTable = "users"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
