package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "127.0.0.1:6380", "-s", "asecret", "-k", "rsecret",
			"-t", "10", "-r", "10080", "-u", "30", "-b", "https://api.example.com", "-p", "key", "-g", "appBase", "-e", "members",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				RedisAddr:                    "127.0.0.1:6380",
				AccessTokenSecret:            "asecret",
				RefreshTokenSecret:           "rsecret",
				AccessTokenValidityDuration:  10 * time.Minute,
				RefreshTokenValidityDuration: 10080 * time.Minute,
				UserCacheTTL:                 30 * time.Minute,
				AirtableBaseURL:              "https://api.example.com",
				AirtableAPIKey:               "key",
				AirtableBaseID:               "appBase",
				AirtableUsersTable:           "members",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
