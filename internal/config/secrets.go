package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// ProtectedSecrets holds the handful of values spec.md §7 says must never
// flow through the same loader as the rest of the process environment:
// the webhook shared key and the sensor cloud OAuth credentials, read from
// a narrower, separately-permissioned file.
type ProtectedSecrets struct {
	WebhookKey       string `mapstructure:"webhook_key"`
	SensorOAuthToken string `mapstructure:"sensor_oauth_token"`
	SensorClientID   string `mapstructure:"sensor_client_id"`
	SensorSecret     string `mapstructure:"sensor_client_secret"`
}

// LoadProtectedSecrets reads path as a standalone viper instance, never
// binding it to the process environment the way godotenv's Load does for
// Config. Missing file is not an error: callers fall back to stub mode.
func LoadProtectedSecrets(path string) (*ProtectedSecrets, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			return &ProtectedSecrets{}, nil
		}
		return nil, fmt.Errorf("reading protected secrets file %s: %w", path, err)
	}

	var s ProtectedSecrets
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding protected secrets file %s: %w", path, err)
	}
	return &s, nil
}
