// Package config provides configuration management for the Modbus CLI.
// It supports environment variables, an optional config file, and
// defaults; command-line flags override all of these.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the tool.
type Config struct {
	// Device connection settings.
	Device DeviceConfig `mapstructure:"device"`

	// Poll mode settings.
	Poll PollConfig `mapstructure:"poll"`

	// MQTT publishing settings for poll mode.
	MQTT MQTTConfig `mapstructure:"mqtt"`

	// Logging configuration.
	Logging LoggingConfig `mapstructure:"logging"`
}

// DeviceConfig holds the default device connection settings.
type DeviceConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	UnitID      int           `mapstructure:"unit_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// PollConfig holds poll mode settings.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Listen   string        `mapstructure:"listen"` // /metrics + /healthz address, empty disables
}

// MQTTConfig holds MQTT publisher settings.
type MQTTConfig struct {
	BrokerURL      string        `mapstructure:"broker_url"`
	Topic          string        `mapstructure:"topic"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            int           `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// Load loads configuration from the optional config file and
// MODBUS_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("modbus")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/modbus")
	v.AddConfigPath("/etc/modbus")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	v.SetEnvPrefix("MODBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key with viper. Keys without a natural
// default still get an empty one: AutomaticEnv only surfaces keys viper
// already knows about, so an unregistered key could never be set from
// the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("device.host", "")
	v.SetDefault("device.port", 502)
	v.SetDefault("device.unit_id", 1)
	v.SetDefault("device.timeout", 3*time.Second)
	v.SetDefault("device.dial_timeout", 5*time.Second)

	v.SetDefault("poll.interval", 1*time.Second)
	v.SetDefault("poll.listen", "")

	v.SetDefault("mqtt.broker_url", "")
	v.SetDefault("mqtt.topic", "")
	v.SetDefault("mqtt.client_id", "modbuscli")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("mqtt.publish_timeout", 5*time.Second)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Device.Port <= 0 || c.Device.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Device.Port)
	}
	if c.Device.UnitID < 0 || c.Device.UnitID > 255 {
		return fmt.Errorf("invalid unit ID: %d (must be 0-255)", c.Device.UnitID)
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid MQTT QoS: %d", c.MQTT.QoS)
	}
	return nil
}
