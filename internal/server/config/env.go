package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv. Token lifetimes are whole seconds.
const (
	EnvHTTPAddr         = "TGMS_HTTP_ADDR"
	EnvGRPCAddr         = "TGMS_GRPC_ADDR"
	EnvDatabaseDSN      = "TGMS_DATABASE_DSN"
	EnvJWTSecret        = "TGMS_JWT_SECRET"
	EnvJWTExpiration    = "TGMS_JWT_EXPIRATION"
	EnvJWTMinSecretLen  = "TGMS_JWT_MIN_SECRET_LENGTH"
	EnvResetExpiration  = "TGMS_RESET_TOKEN_EXPIRATION"
	EnvBcryptCost       = "TGMS_BCRYPT_COST"
	EnvExposeResetToken = "TGMS_EXPOSE_RESET_TOKEN"
	EnvPhoneRegion      = "TGMS_PHONE_REGION"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvMetricsAddr      = "TGMS_METRICS_ADDR"
	EnvOTLPEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"
)

// parseEnv loads envFile (or ./.env when empty) into the process environment
// and then overlays every recognised variable onto config. A missing default
// .env is fine; a missing explicit file is not.
func parseEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env: %w", err)
		}
	}

	getenvString(&config.EndpointAddrHTTP, EnvHTTPAddr)
	getenvString(&config.EndpointAddrGRPC, EnvGRPCAddr)
	getenvString(&config.DatabaseDSN, EnvDatabaseDSN)
	getenvString(&config.SecretKey, EnvJWTSecret)
	getenvString(&config.DefaultPhoneRegion, EnvPhoneRegion)
	getenvString(&config.LogLevel, EnvLogLevel)
	getenvString(&config.LogFormat, EnvLogFormat)
	getenvString(&config.MetricsAddr, EnvMetricsAddr)
	getenvString(&config.OTLPEndpoint, EnvOTLPEndpoint)

	if err := getenvSeconds(&config.AccessTokenValidityDuration, EnvJWTExpiration); err != nil {
		return err
	}
	if err := getenvSeconds(&config.ResetTokenValidityDuration, EnvResetExpiration); err != nil {
		return err
	}
	if err := getenvInt(&config.MinSecretLength, EnvJWTMinSecretLen); err != nil {
		return err
	}
	if err := getenvInt(&config.BcryptCost, EnvBcryptCost); err != nil {
		return err
	}
	if err := getenvBool(&config.ExposeResetToken, EnvExposeResetToken); err != nil {
		return err
	}
	if err := getenvBool(&config.OTLPInsecure, EnvOTLPInsecure); err != nil {
		return err
	}
	return nil
}

func getenvString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func getenvInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fmt.Errorf("%s: expected a positive integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func getenvSeconds(dst *time.Duration, key string) error {
	var secs int
	if err := getenvInt(&secs, key); err != nil {
		return err
	}
	if secs > 0 {
		*dst = time.Duration(secs) * time.Second
	}
	return nil
}

func getenvBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: expected a boolean, got %q", key, v)
	}
	*dst = b
	return nil
}
