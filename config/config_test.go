package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "book")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "bookmarket")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		setRequired(t)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
			t.Errorf("db defaults wrong: %s:%d", cfg.DB.Host, cfg.DB.Port)
		}
		if cfg.Auth.TokenDuration != 24*time.Hour {
			t.Errorf("token duration default = %v", cfg.Auth.TokenDuration)
		}
		if cfg.Auth.ResetTokenTTL != 30*time.Minute {
			t.Errorf("reset token ttl default = %v", cfg.Auth.ResetTokenTTL)
		}
		if cfg.Server.Port != "4000" {
			t.Errorf("server port default = %s", cfg.Server.Port)
		}
	})

	t.Run("missing required variables are all reported", func(t *testing.T) {
		t.Setenv("DB_USER", "book")
		t.Setenv("DB_PASSWORD", "secret")
		unset(t, "DB_NAME")
		unset(t, "JWT_SECRET")
		_, err := LoadConfig()
		if err == nil {
			t.Fatal("LoadConfig should fail without required variables")
		}
		msg := err.Error()
		for _, key := range []string{"DB_NAME", "JWT_SECRET"} {
			if !strings.Contains(msg, key) {
				t.Errorf("error should mention %s: %v", key, msg)
			}
		}
	})

	t.Run("durations parsed", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_TOKEN_DURATION", "90m")
		t.Setenv("RESET_TOKEN_TTL", "10m")
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Auth.TokenDuration != 90*time.Minute {
			t.Errorf("token duration = %v", cfg.Auth.TokenDuration)
		}
		if cfg.Auth.ResetTokenTTL != 10*time.Minute {
			t.Errorf("reset ttl = %v", cfg.Auth.ResetTokenTTL)
		}
	})

	t.Run("bad duration collected as error", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_TOKEN_DURATION", "ninety minutes")
		if _, err := LoadConfig(); err == nil {
			t.Fatal("LoadConfig should reject an unparsable duration")
		}
	})

	t.Run("pool size clamped", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_POOL_SIZE", "2")
		if _, err := LoadConfig(); err == nil {
			t.Fatal("clamping should be reported as a configuration error")
		}
	})
}

// unset removes a variable for the duration of the test. t.Setenv registers
// the restore cleanup; the follow-up Unsetenv leaves the key absent.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}
