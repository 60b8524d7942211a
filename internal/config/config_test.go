package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	original := os.Getenv("CONFIGS_URL")
	defer restoreEnv(t, "CONFIGS_URL", original)
	os.Setenv("CONFIGS_URL", "https://example.com/configs.git")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("expected config to load, got error: %v", err)
	}

	if cfg.Address != "0.0.0.0" {
		t.Errorf("expected default address 0.0.0.0, got %s", cfg.Address)
	}
	if cfg.Port != 80 {
		t.Errorf("expected default port 80, got %d", cfg.Port)
	}
	if cfg.CacheSize != 100 {
		t.Errorf("expected default cache size 100, got %d", cfg.CacheSize)
	}
	if cfg.EnvironmentsFilter != ".+" {
		t.Errorf("expected default environments filter '.+', got %s", cfg.EnvironmentsFilter)
	}
	if cfg.Strict {
		t.Error("expected strict to default to false")
	}
}

func TestLoad_MissingConfigsURL(t *testing.T) {
	original := os.Getenv("CONFIGS_URL")
	defer restoreEnv(t, "CONFIGS_URL", original)
	os.Unsetenv("CONFIGS_URL")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected an error when configs_url is unset")
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	vars := map[string]string{
		"CONFIGS_URL": os.Getenv("CONFIGS_URL"),
		"ADDRESS":     os.Getenv("ADDRESS"),
		"PORT":        os.Getenv("PORT"),
		"CACHE_SIZE":  os.Getenv("CACHE_SIZE"),
		"STRICT":      os.Getenv("STRICT"),
	}
	defer func() {
		for k, v := range vars {
			restoreEnv(t, k, v)
		}
	}()

	os.Setenv("CONFIGS_URL", "git@example.com:org/configs.git")
	os.Setenv("ADDRESS", "127.0.0.1")
	os.Setenv("PORT", "9090")
	os.Setenv("CACHE_SIZE", "250")
	os.Setenv("STRICT", "true")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Address != "127.0.0.1" {
		t.Errorf("expected address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.CacheSize != 250 {
		t.Errorf("expected cache size 250, got %d", cfg.CacheSize)
	}
	if !cfg.Strict {
		t.Error("expected strict to be true")
	}
}

func restoreEnv(t *testing.T, key, value string) {
	t.Helper()
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
}
