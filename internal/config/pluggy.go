package config

import (
	"os"

	"github.com/caixahub/caixahub/internal/pluggy"
	"github.com/spf13/viper"
)

// LoadPluggyConfig loads aggregator credentials from Viper and environment
// variables. Precedence:
// 1. Viper configuration (from config file or CAIXAHUB_ env vars)
// 2. Direct environment variables (PLUGGY_*)
func LoadPluggyConfig() (*pluggy.Config, error) {
	cfg := pluggy.Config{
		ClientID:     viper.GetString("pluggy.client_id"),
		ClientSecret: viper.GetString("pluggy.client_secret"),
		BaseURL:      viper.GetString("pluggy.base_url"),
	}

	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("PLUGGY_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("PLUGGY_CLIENT_SECRET")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("PLUGGY_BASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
