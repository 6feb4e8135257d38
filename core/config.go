package core

import (
	"fmt"
	"strings"
	"time"
)

type HTTPConfig struct {
	Timeout      time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
}

type RefreshConfig struct {
	MaxAttempts    int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	HTTP        HTTPConfig    `koanf:"http" mapstructure:"http"`
	Refresh     RefreshConfig `koanf:"refresh" mapstructure:"refresh"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "social",
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Refresh: RefreshConfig{
			MaxAttempts:    5,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("core: http.timeout must not be negative")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("core: http.max_body_bytes must not be negative")
	}
	if c.Refresh.MaxAttempts < 0 {
		return fmt.Errorf("core: refresh.max_attempts must not be negative")
	}
	if c.Refresh.InitialBackoff < 0 || c.Refresh.MaxBackoff < 0 {
		return fmt.Errorf("core: refresh backoff durations must not be negative")
	}
	return nil
}
