package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.App.Port)
	}
	if cfg.OTP.TTL != 10*time.Minute {
		t.Fatalf("otp ttl = %v, want 10m", cfg.OTP.TTL)
	}
	if cfg.OTP.MaxAttempts != 5 {
		t.Fatalf("max attempts = %d, want 5", cfg.OTP.MaxAttempts)
	}
	if cfg.JWT.Secret == "" {
		t.Fatal("expected development secret fallback")
	}
	if cfg.Kafka.Enabled() {
		t.Fatal("kafka should be disabled without brokers")
	}
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"APP_PORT":          "9000",
		"JWT_SECRET":        "s3cret",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"OTP_TTL":           "2m",
		"NOTIFY_TIMEOUT":    "1s",
		"TWILIO_FROM":       "+15550000000",
		"APP_ENVIRONMENT":   "production",
		"DB_MAX_IDLE_CONNS": "2",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "9000" || cfg.JWT.Secret != "s3cret" {
		t.Fatalf("unexpected app/jwt config: %+v %+v", cfg.App, cfg.JWT)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.OTP.TTL != 2*time.Minute || cfg.Notify.Timeout != time.Second {
		t.Fatalf("durations not parsed: %v %v", cfg.OTP.TTL, cfg.Notify.Timeout)
	}
	if cfg.Database.MaxIdleConns != 2 {
		t.Fatalf("max idle = %d", cfg.Database.MaxIdleConns)
	}
}

func TestLoadFromRequiresSecretOutsideDevelopment(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"APP_ENVIRONMENT": "production",
	}))
	if err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}
}
