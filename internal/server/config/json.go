package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/teamterraforge/tgmsauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "24h" style strings and integer nanoseconds. Absent fields keep the value
// the Config already holds.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	MinSecretLength             int            `json:"min_secret_length"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	ResetTokenValidityDuration  timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	ExposeResetToken            *bool          `json:"expose_reset_token"`
	DefaultPhoneRegion          string         `json:"default_phone_region"`
	LogLevel                    string         `json:"log_level"`
	LogFormat                   string         `json:"log_format"`
	MetricsAddr                 string         `json:"metrics_addr"`
	OTLPEndpoint                string         `json:"otlp_endpoint"`
}

// parseJson overlays values from the JSON file at path. An empty path is a
// no-op; an unreadable or invalid file is an error.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.DefaultPhoneRegion, c.DefaultPhoneRegion)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)

	if c.MinSecretLength > 0 {
		config.MinSecretLength = c.MinSecretLength
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ResetTokenValidityDuration.Duration > 0 {
		config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
	}
	if c.ExposeResetToken != nil {
		config.ExposeResetToken = *c.ExposeResetToken
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
