package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/greenloop/backend/internal/flagx"
	"github.com/greenloop/backend/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for interval fields, which
// allows parsing both string values such as "15m" and integer nanoseconds.
// After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	UserCacheTTL                 timex.Duration `json:"user_cache_ttl"`
	CacheOpTimeout               timex.Duration `json:"cache_op_timeout"`
	AirtableBaseURL              string         `json:"airtable_base_url"`
	AirtableAPIKey               string         `json:"airtable_api_key"`
	AirtableBaseID               string         `json:"airtable_base_id"`
	AirtableUsersTable           string         `json:"airtable_users_table"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags; if
// neither is set, no JSON file is loaded. An unreadable file or invalid
// JSON panics — the server should not come up on a half-applied config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.RedisAddr = c.RedisAddr
	config.RedisPassword = c.RedisPassword
	config.RedisDB = c.RedisDB
	config.AccessTokenSecret = c.AccessTokenSecret
	config.RefreshTokenSecret = c.RefreshTokenSecret
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.UserCacheTTL = time.Duration(c.UserCacheTTL.Duration)
	config.CacheOpTimeout = time.Duration(c.CacheOpTimeout.Duration)
	config.AirtableBaseURL = c.AirtableBaseURL
	config.AirtableAPIKey = c.AirtableAPIKey
	config.AirtableBaseID = c.AirtableBaseID
	config.AirtableUsersTable = c.AirtableUsersTable
}
