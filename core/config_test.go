package core

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ServiceName != "social" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("unexpected http timeout %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected max body bytes %d", cfg.HTTP.MaxBodyBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceName = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected blank service name to fail validation")
	}

	cfg = DefaultConfig()
	cfg.Refresh.MaxAttempts = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative max attempts to fail validation")
	}
}

func TestGoOptionsResolver_RuntimeOverridesLoaded(t *testing.T) {
	defaults := DefaultConfig()

	loaded := Config{}
	loaded.ServiceName = "loaded"
	loaded.HTTP.Timeout = 10 * time.Second
	loaded.HTTP.MaxBodyBytes = 1 << 16

	runtime := Config{}
	runtime.ServiceName = "runtime"

	resolved, err := (GoOptionsResolver{}).Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "runtime" {
		t.Fatalf("expected runtime layer to win, got %q", resolved.ServiceName)
	}
	if resolved.HTTP.Timeout != 10*time.Second {
		t.Fatalf("expected loaded http timeout to survive, got %v", resolved.HTTP.Timeout)
	}
	if resolved.Refresh.MaxAttempts != defaults.Refresh.MaxAttempts {
		t.Fatalf("expected defaults to fill untouched sections, got %d", resolved.Refresh.MaxAttempts)
	}
}

func TestCfgxConfigProvider_LoadAppliesRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(staticRawConfigLoader{Values: map[string]any{
		"service_name": "configured",
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "configured" {
		t.Fatalf("expected configured service name, got %q", cfg.ServiceName)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("expected defaults for unset values, got %v", cfg.HTTP.Timeout)
	}
}
