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

func TestLoadFromFile_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
service:
  store: memory
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Service.Port != 3000 {
		t.Errorf("service.port default = %d, want 3000", cfg.Service.Port)
	}
	if cfg.RabbitMQ.Host != "localhost" || cfg.RabbitMQ.Port != 5672 {
		t.Errorf("rabbitmq defaults = %s:%d", cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	}
	if cfg.Broadcast.Buffer != 64 {
		t.Errorf("broadcast.buffer default = %d, want 64", cfg.Broadcast.Buffer)
	}
	if cfg.JWT.SecretKey == "" {
		t.Error("jwt secret should be generated when unset")
	}
}

func TestLoadFromFile_PostgresRequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
service:
  store: postgres
database:
  host: db.internal
`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected validation error for missing database credentials")
	}
}

func TestLoadFromFile_FullConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 5433
  user: driveme
  password: secret
  name: driveme
rabbitmq:
  host: mq.internal
  user: guest
  password: guest
service:
  port: 8080
pricing:
  min_rate_per_km: 10.0
  max_rate_per_km: 15.0
  floor: 40.0
  spread: 15.0
  currency: EUR
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.Port != 5433 || cfg.Database.Name != "driveme" {
		t.Errorf("database section not decoded: %+v", cfg.Database)
	}
	if cfg.Pricing.Currency != "EUR" || cfg.Pricing.MaxRatePerKM != 15.0 {
		t.Errorf("pricing section not decoded: %+v", cfg.Pricing)
	}
}

func TestLoadFromFile_RejectsBadRates(t *testing.T) {
	path := writeConfig(t, `
service:
  store: memory
pricing:
  min_rate_per_km: 20.0
  max_rate_per_km: 10.0
`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected validation error for min rate above max rate")
	}
}
