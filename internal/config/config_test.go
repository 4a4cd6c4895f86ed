package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "REDIS_DEDUPE_PREFIX")
	unsetEnvWithCleanup(t, "WEBHOOK_DEDUPE_TTL_SECONDS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8084" {
		t.Fatalf("expected default server port 8084, got %q", cfg.ServerPort)
	}
	if cfg.RedisDedupePrefix != "donation:webhook_seen" {
		t.Fatalf("expected default dedupe prefix, got %q", cfg.RedisDedupePrefix)
	}
	if cfg.WebhookDedupeTTL != 3600 {
		t.Fatalf("expected default dedupe TTL 3600, got %d", cfg.WebhookDedupeTTL)
	}
	if cfg.PayMongoAPIBaseURL != "https://api.paymongo.com" {
		t.Fatalf("expected default paymongo base url, got %q", cfg.PayMongoAPIBaseURL)
	}
}

func TestLoadConfig_PlatformPortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8084")
	setEnvWithCleanup(t, "PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_WebhookSecretsFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PAYMONGO_WEBHOOK_SECRET", "whsk_pm")
	setEnvWithCleanup(t, "MAYA_WEBHOOK_SECRET", "whsk_maya")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PayMongoWebhookSecret != "whsk_pm" {
		t.Fatalf("expected paymongo webhook secret from env, got %q", cfg.PayMongoWebhookSecret)
	}
	if cfg.MayaWebhookSecret != "whsk_maya" {
		t.Fatalf("expected maya webhook secret from env, got %q", cfg.MayaWebhookSecret)
	}
}

func TestLoadConfig_NonPositiveDedupeTTLCoerced(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "WEBHOOK_DEDUPE_TTL_SECONDS", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WebhookDedupeTTL != 3600 {
		t.Fatalf("expected non-positive TTL to fall back to 3600, got %d", cfg.WebhookDedupeTTL)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
