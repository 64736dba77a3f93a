// Package config loads clockctl settings from a YAML file, CLOCKCTL_*
// environment variables and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sysspeed/host/serial"
)

// Config holds the complete clockctl configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Logging LoggingConfig `mapstructure:"logging"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SerialConfig selects the controller link
type SerialConfig struct {
	Device         string        `mapstructure:"device"`
	Baud           int           `mapstructure:"baud"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	Simulate       bool          `mapstructure:"simulate"` // in-process simulated controller
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// MonitorConfig controls `clockctl monitor`
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// FirmwareReports arms config_load_report instead of polling get_load
	FirmwareReports bool `mapstructure:"firmware_reports"`
}

// MetricsConfig defines the Prometheus endpoint; an empty Listen disables it
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Port returns the serial settings for host/serial
func (c SerialConfig) Port() *serial.Config {
	return &serial.Config{
		Device:      c.Device,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	}
}

// Load reads configuration from configPath. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("CLOCKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.device", "/dev/ttyACM0")
	v.SetDefault("serial.baud", serial.DefaultBaud)
	v.SetDefault("serial.read_timeout", "100ms")
	v.SetDefault("serial.command_timeout", "2s")
	v.SetDefault("serial.simulate", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("monitor.interval", "1s")
	v.SetDefault("monitor.firmware_reports", false)

	v.SetDefault("metrics.listen", "")
}

// validate checks the loaded configuration
func validate(cfg *Config) error {
	if !cfg.Serial.Simulate && cfg.Serial.Device == "" {
		return fmt.Errorf("serial device is required")
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("invalid baud rate: %d", cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout: %v", cfg.Serial.ReadTimeout)
	}
	if cfg.Serial.CommandTimeout <= 0 {
		return fmt.Errorf("invalid command timeout: %v", cfg.Serial.CommandTimeout)
	}

	switch cfg.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", cfg.Logging.Format)
	}

	// Reports below 1ms would flood a 250000 baud link
	if cfg.Monitor.Interval < time.Millisecond {
		return fmt.Errorf("monitor interval too short: %v", cfg.Monitor.Interval)
	}

	return nil
}
