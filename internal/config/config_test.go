package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token TTL 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.ReportCacheTTLSeconds != 60 {
		t.Fatalf("expected default report TTL 60, got %d", cfg.ReportCacheTTLSeconds)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("expected no brokers when unset, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadParsesKafkaBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")

	cfg := Load()
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker-1:9092" || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected broker list: %v", cfg.KafkaBrokers)
	}
}

func TestLoadIgnoresBadTTLValues(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "abc")

	cfg := Load()
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected fallback token TTL, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.ReportCacheTTLSeconds != 60 {
		t.Fatalf("expected fallback report TTL, got %d", cfg.ReportCacheTTLSeconds)
	}
}

func TestAddress(t *testing.T) {
	cfg := Config{Port: "9000"}
	if cfg.Address() != ":9000" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}
