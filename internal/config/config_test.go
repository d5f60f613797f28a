package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	configContent := `
server:
  port: 8080
  environment: production
  jwt_secret: "test-secret"
  token_ttl_hours: 48
database:
  url: "postgres://localhost/testdb"
  max_conns: 50
  min_conns: 10
ai:
  api_key: "ai-key"
  models:
    - first-model
    - second-model
speech:
  api_key: "speech-key"
audit:
  enabled: true
  data_path: "/tmp/preva-audit"
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.JWTSecret != "test-secret" {
		t.Errorf("jwt secret %q", cfg.Server.JWTSecret)
	}
	if cfg.Server.TokenTTLHours != 48 {
		t.Errorf("token ttl %d, want 48", cfg.Server.TokenTTLHours)
	}
	if cfg.Database.URL != "postgres://localhost/testdb" {
		t.Errorf("database url %q", cfg.Database.URL)
	}
	if len(cfg.AI.Models) != 2 || cfg.AI.Models[0] != "first-model" {
		t.Errorf("models %v", cfg.AI.Models)
	}
	// unspecified fields fall back to defaults
	if cfg.AI.BaseURL == "" {
		t.Error("ai base url default not applied")
	}
	if cfg.Speech.VoiceID == "" || cfg.Speech.TTSModel == "" || cfg.Speech.STTModel == "" {
		t.Errorf("speech defaults not applied: %+v", cfg.Speech)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_PREVA_SECRET", "expanded-secret")

	configContent := `
server:
  jwt_secret: "${TEST_PREVA_SECRET}"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.JWTSecret != "expanded-secret" {
		t.Errorf("jwt secret %q, want expanded value", cfg.Server.JWTSecret)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("AI_MODELS", "one, two ,three")
	t.Setenv("AUDIT_ENABLED", "false")

	cfg := LoadFromEnv()

	if cfg.Server.Port != 9001 {
		t.Errorf("port %d, want 9001", cfg.Server.Port)
	}
	if cfg.Server.JWTSecret != "env-secret" {
		t.Errorf("jwt secret %q", cfg.Server.JWTSecret)
	}
	if len(cfg.AI.Models) != 3 || cfg.AI.Models[1] != "two" {
		t.Errorf("models %v, want trimmed list of 3", cfg.AI.Models)
	}
	if cfg.Audit.Enabled {
		t.Error("audit enabled, want disabled via env")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "JWT_SECRET", "AI_MODELS", "AI_BASE_URL", "AUDIT_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()

	if cfg.Server.Port != 3002 {
		t.Errorf("default port %d, want 3002", cfg.Server.Port)
	}
	if cfg.Server.TokenTTLHours != 30*24 {
		t.Errorf("default ttl %d, want 720", cfg.Server.TokenTTLHours)
	}
	if len(cfg.AI.Models) == 0 {
		t.Error("default model chain empty")
	}
	if !cfg.Audit.Enabled {
		t.Error("audit default should be enabled")
	}
}
