// Package settings loads faultline construction parameters from
// configuration files and environment variables.
package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds store and buffer construction parameters.
type Settings struct {
	// StoreDir is the root directory for durable report records.
	StoreDir string `mapstructure:"store_dir"`

	// MaxEventsPerSession bounds retained nonfatal events per session.
	MaxEventsPerSession int `mapstructure:"max_events_per_session"`

	// MaxFinalizedReports bounds retained finalized reports.
	MaxFinalizedReports int `mapstructure:"max_finalized_reports"`

	// MaxLogBytes bounds the in-memory log buffer.
	MaxLogBytes int `mapstructure:"max_log_bytes"`

	// Endpoint is the report delivery URL.
	Endpoint string `mapstructure:"endpoint"`

	// APIKey authenticates deliveries, empty to send unauthenticated.
	APIKey string `mapstructure:"api_key"`
}

// Default returns Settings with production defaults. StoreDir falls back to
// a "faultline" directory under the user cache dir.
func Default() Settings {
	storeDir := "faultline"
	if cache, err := os.UserCacheDir(); err == nil {
		storeDir = filepath.Join(cache, "faultline")
	}
	return Settings{
		StoreDir:            storeDir,
		MaxEventsPerSession: 8,
		MaxFinalizedReports: 4,
		MaxLogBytes:         64 * 1024,
	}
}

// Load reads faultline.yaml from conventional locations, applying
// FAULTLINE_* environment overrides. A missing config file yields defaults,
// not an error.
func Load() (Settings, error) {
	v := viper.New()
	v.SetConfigName("faultline")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/faultline/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "faultline"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("FAULTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("store_dir", defaults.StoreDir)
	v.SetDefault("max_events_per_session", defaults.MaxEventsPerSession)
	v.SetDefault("max_finalized_reports", defaults.MaxFinalizedReports)
	v.SetDefault("max_log_bytes", defaults.MaxLogBytes)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
