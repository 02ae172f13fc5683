package config

import (
	"fmt"
	"strconv"
	"time"
)

const envPrefix = "GOPHRECIPES_"

// parseEnv overlays GOPHRECIPES_* variables.
func parseEnv(config *Config, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		return nil
	}

	strs := map[string]*string{
		"GRPC_ADDRESS": &config.EndpointAddrGRPC,
		"DATABASE_DSN": &config.DatabaseDSN,
		"SECRET_KEY":   &config.SecretKey,
		"LOG_LEVEL":    &config.LogLevel,
		"LOG_BACKEND":  &config.LogBackend,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_VALIDITY": &config.AccessTokenValidityDuration,
		"STATEMENT_TIMEOUT":     &config.StatementTimeout,
	}
	for name, dst := range durations {
		v, ok := lookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookupEnv(envPrefix + "BCRYPT_COST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sBCRYPT_COST: %w", envPrefix, err)
		}
		config.BcryptCost = n
	}
	return nil
}
