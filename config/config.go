// Package config loads CLI configuration from sheetsql.toml and the
// environment.
//
// The file is searched in the working directory, $HOME/.sheetsql and
// /etc/sheetsql, in that order. A missing file is not an error; every value
// has a flag or environment fallback.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved CLI configuration.
type Config struct {
	// Token is the OAuth2 access token used as the bearer credential.
	Token string
	// SpreadsheetID is the default spreadsheet target.
	SpreadsheetID string
	// DefaultRange is the A1 range used when the statement has no FROM
	// clause and no -range flag is given.
	DefaultRange string
	// HTTPTimeout bounds each Sheets API call.
	HTTPTimeout time.Duration
}

// Load reads sheetsql.toml and the environment. The SHEETSQL_TOKEN
// environment variable takes precedence over both auth.token and
// auth.token_file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("sheetsql")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".sheetsql"))
	}
	v.AddConfigPath("/etc/sheetsql")

	v.SetDefault("http.timeout_seconds", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		SpreadsheetID: v.GetString("sheets.spreadsheet_id"),
		DefaultRange:  v.GetString("sheets.default_range"),
		HTTPTimeout:   time.Duration(v.GetInt("http.timeout_seconds")) * time.Second,
	}

	cfg.Token = strings.TrimSpace(os.Getenv("SHEETSQL_TOKEN"))
	if cfg.Token == "" {
		cfg.Token = strings.TrimSpace(v.GetString("auth.token"))
	}
	if cfg.Token == "" {
		if path := v.GetString("auth.token_file"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			cfg.Token = strings.TrimSpace(string(raw))
		}
	}

	return cfg, nil
}
