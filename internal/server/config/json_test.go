package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"endpoint_addr_http":             "0.0.0.0:8081",
		"endpoint_addr_grpc":             "0.0.0.0:9001",
		"database_dsn":                   "postgres://db/tgms",
		"secret_key":                     "my_secret_key",
		"min_secret_length":              16,
		"access_token_validity_duration": "2h",
		"reset_token_validity_duration":  "15m",
		"bcrypt_cost":                    12,
		"expose_reset_token":             false,
		"default_phone_region":           "LK",
		"log_level":                      "warn",
		"log_format":                     "text",
		"metrics_addr":                   ":9100",
		"otlp_endpoint":                  "otel:4317",
	})

	t.Run("loads every field", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, full))

		assert.Equal(t, "0.0.0.0:8081", cfg.EndpointAddrHTTP)
		assert.Equal(t, "0.0.0.0:9001", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db/tgms", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 16, cfg.MinSecretLength)
		assert.Equal(t, 2*time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 15*time.Minute, cfg.ResetTokenValidityDuration)
		assert.Equal(t, 12, cfg.BcryptCost)
		assert.False(t, cfg.ExposeResetToken)
		assert.Equal(t, "LK", cfg.DefaultPhoneRegion)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, ":9100", cfg.MetricsAddr)
		assert.Equal(t, "otel:4317", cfg.OTLPEndpoint)
	})

	t.Run("absent fields keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"database_dsn": "other"})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, partial))

		assert.Equal(t, "other", cfg.DatabaseDSN)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, 24*time.Hour, cfg.AccessTokenValidityDuration)
		assert.True(t, cfg.ExposeResetToken)
	})

	t.Run("empty path is a no-op", func(t *testing.T) {
		cfg := &Config{EndpointAddrHTTP: "keep"}
		require.NoError(t, parseJson(cfg, ""))
		assert.Equal(t, "keep", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Error(t, parseJson(cfg, bad))
	})
}
