// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hangil-labs/geoconv/pkg/vworld"
)

// Config holds the full application configuration.
type Config struct {
	VWorld  VWorldConfig  `yaml:"vworld" mapstructure:"vworld"`
	Convert ConvertConfig `yaml:"convert" mapstructure:"convert"`
	Judge   JudgeConfig   `yaml:"judge" mapstructure:"judge"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// VWorldConfig holds provider credentials and client tuning.
type VWorldConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	DailyLimit  int64   `yaml:"daily_limit" mapstructure:"daily_limit"`
}

// ConvertConfig configures batch resolution behavior.
type ConvertConfig struct {
	FallbackOrder []string `yaml:"fallback_order" mapstructure:"fallback_order"`
	Concurrency   int      `yaml:"concurrency" mapstructure:"concurrency"`
}

// FallbackTypes parses the configured fallback order.
func (c ConvertConfig) FallbackTypes() ([]vworld.AddressType, error) {
	out := make([]vworld.AddressType, 0, len(c.FallbackOrder))
	for _, s := range c.FallbackOrder {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "ROAD":
			out = append(out, vworld.TypeRoad)
		case "PARCEL":
			out = append(out, vworld.TypeParcel)
		default:
			return nil, eris.Errorf("config: invalid fallback type %q (want road or parcel)", s)
		}
	}
	return out, nil
}

// JudgeConfig configures the delegated classification judge.
type JudgeConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "off" or "anthropic"
	Key      string `yaml:"key" mapstructure:"key"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// ExperimentalBindStruct makes AutomaticEnv apply during Unmarshal,
	// matching the default behavior of viper >= 1.21 (this module builds
	// against 1.20.x, where it is opt-in).
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("vworld.base_url", vworld.DefaultBaseURL)
	v.SetDefault("vworld.rate_per_sec", 10.0)
	v.SetDefault("vworld.timeout_secs", 10)
	v.SetDefault("vworld.max_attempts", 3)
	v.SetDefault("vworld.daily_limit", 40000)
	v.SetDefault("convert.fallback_order", []string{"road", "parcel"})
	v.SetDefault("convert.concurrency", 1)
	v.SetDefault("judge.provider", "off")
	v.SetDefault("judge.model", "claude-haiku-4-5-20251001")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
