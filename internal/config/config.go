// Package config loads agent configuration from application.yaml and
// environment variables (STAFFMON_ prefix), with .env support.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full agent configuration tree.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	API      APIConfig      `mapstructure:"api"`
	Data     DataConfig     `mapstructure:"data"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TrackingConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
}

type SyncConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	MaxRetryAttempts int           `mapstructure:"max_retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
}

type CaptureConfig struct {
	Interval            time.Duration `mapstructure:"interval"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
	JPEGQuality         int           `mapstructure:"jpeg_quality"`
	Scale               float64       `mapstructure:"scale"`
}

type APIConfig struct {
	Port int `mapstructure:"port"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads application.yaml (working dir or alongside the binary
// config dir), applies env overrides, and fills defaults. A missing
// config file is not an error; defaults plus env are enough to run.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/staffmon")
	v.SetEnvPrefix("STAFFMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("remote.base_url", "http://localhost:3000")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("tracking.interval", time.Second)
	v.SetDefault("tracking.idle_threshold", 30*time.Second)
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.max_retry_attempts", 3)
	v.SetDefault("sync.retry_delay", 5*time.Second)
	v.SetDefault("capture.interval", 60*time.Second)
	v.SetDefault("capture.inactivity_threshold", 30*time.Second)
	v.SetDefault("capture.jpeg_quality", 60)
	v.SetDefault("capture.scale", 0.5)
	v.SetDefault("api.port", 8743)
	v.SetDefault("data.dir", "")
}
