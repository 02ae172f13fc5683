package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophrecipes/internal/flagx"
)

// Duration accepts both "1m30s" strings and integer nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
}

// JsonConfig is the on-disk shape of the config file. Absent keys keep the
// value already present in Config.
type JsonConfig struct {
	EndpointAddrGRPC            *string   `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string   `json:"database_dsn"`
	SecretKey                   *string   `json:"secret_key"`
	AccessTokenValidityDuration *Duration `json:"access_token_validity_duration"`
	StatementTimeout            *Duration `json:"statement_timeout"`
	LogLevel                    *string   `json:"log_level"`
	LogBackend                  *string   `json:"log_backend"`
	BcryptCost                  *int      `json:"bcrypt_cost"`
}

// parseJSON overlays the file given by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
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

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogBackend, c.LogBackend)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.StatementTimeout != nil {
		config.StatementTimeout = c.StatementTimeout.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
