package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DENTALCHAT_API_KEY", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.PainEmergencyThreshold != 7 {
		t.Fatalf("expected default pain threshold 7, got %d", cfg.PainEmergencyThreshold)
	}
	if cfg.MaxConversationTurns != 10 {
		t.Fatalf("expected default max turns 10, got %d", cfg.MaxConversationTurns)
	}
	if cfg.DentalChatTimeout != 30*time.Second {
		t.Fatalf("expected default dentalchat timeout, got %s", cfg.DentalChatTimeout)
	}
	if cfg.SessionMaxAge != 24*time.Hour {
		t.Fatalf("expected default session max age, got %s", cfg.SessionMaxAge)
	}
	if !cfg.UseMockDentalChat() {
		t.Fatal("expected mock dentalchat client with demo key")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DENTALCHAT_API_KEY", "live-key-123")
	t.Setenv("PAIN_EMERGENCY_THRESHOLD", "8")
	t.Setenv("MAX_CONVERSATION_TURNS", "15")
	t.Setenv("SESSION_MAX_AGE", "2h")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.PainEmergencyThreshold != 8 {
		t.Fatalf("expected pain threshold override, got %d", cfg.PainEmergencyThreshold)
	}
	if cfg.MaxConversationTurns != 15 {
		t.Fatalf("expected max turns override, got %d", cfg.MaxConversationTurns)
	}
	if cfg.SessionMaxAge != 2*time.Hour {
		t.Fatalf("expected session max age override, got %s", cfg.SessionMaxAge)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.UseMockDentalChat() {
		t.Fatal("expected real dentalchat client with live key")
	}
}
