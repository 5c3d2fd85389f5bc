package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("expected default port, got %d", c.Server.Port)
	}
	if c.Provider.CoinbaseURL == "" {
		t.Fatalf("expected coinbase default url")
	}
	if c.Store.Prefix != "marketpulse" {
		t.Fatalf("expected store prefix default, got %q", c.Store.Prefix)
	}
}

func TestValidateKafkaBrokers(t *testing.T) {
	path := writeConfig(t, "environment: test\nkafka:\n  enabled: true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for enabled kafka without brokers")
	}
}

func TestValidateMissingEnvironment(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9999\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing environment")
	}
}
