package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.json"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("OllamaURL = %q", cfg.OllamaURL)
	}
	if cfg.MaxIterations <= 0 || cfg.PromptBudgetChars <= 0 {
		t.Errorf("loop defaults missing: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"model": "qwen2.5:3b", "max_iterations": 5}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Model != "qwen2.5:3b" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxIterations != 5 {
		t.Errorf("MaxIterations = %d, want 5", cfg.MaxIterations)
	}
	// Unspecified fields keep their defaults.
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("OllamaURL = %q", cfg.OllamaURL)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Errorf("Load() accepted malformed JSON")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENTWERK_MODEL", "deepseek-coder:6.7b")
	t.Setenv("AGENTWERK_MAX_ITERATIONS", "7")
	t.Setenv("AGENTWERK_OLLAMA_URL", "http://10.0.0.5:11434")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Model != "deepseek-coder:6.7b" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d, want 7", cfg.MaxIterations)
	}
	if cfg.OllamaURL != "http://10.0.0.5:11434" {
		t.Errorf("OllamaURL = %q", cfg.OllamaURL)
	}
}

func TestEnvIgnoresInvalidInt(t *testing.T) {
	t.Setenv("AGENTWERK_MAX_ITERATIONS", "lots")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.MaxIterations != DefaultConfig().MaxIterations {
		t.Errorf("MaxIterations = %d, want default", cfg.MaxIterations)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Model = "llama3.1:8b"
	cfg.FallbackModel = "qwen2.5:0.5b"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Model != "llama3.1:8b" || loaded.FallbackModel != "qwen2.5:0.5b" {
		t.Errorf("reloaded config = %+v", loaded)
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Serve.AuthToken = "super-secret-token"
	if err := cfg.UpdateSecretsPassword("hunter2"); err != nil {
		t.Fatalf("UpdateSecretsPassword() failed: %v", err)
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "super-secret-token") {
		t.Fatalf("plaintext token persisted to disk")
	}
	if !strings.Contains(string(raw), `"auth_token": "enc:`) {
		t.Errorf("token not stored with encryption prefix:\n%s", raw)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := loaded.ApplySecretsPassword("hunter2"); err != nil {
		t.Fatalf("ApplySecretsPassword() failed: %v", err)
	}
	if loaded.Serve.AuthToken != "super-secret-token" {
		t.Errorf("AuthToken = %q after decrypt", loaded.Serve.AuthToken)
	}
}

func TestSecretsWrongPasswordRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Serve.AuthToken = "super-secret-token"
	if err := cfg.UpdateSecretsPassword("hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.ApplySecretsPassword("wrong"); err == nil {
		t.Errorf("ApplySecretsPassword() accepted wrong password")
	}
}

func TestSecretsRoundTripWithoutPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.OpenAICompat.APIKey = "sk-local-test"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	// Sensitive fields are wrapped even without a password so the on-disk
	// format never changes.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "sk-local-test") {
		t.Fatalf("plaintext key persisted to disk")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.ApplySecretsPassword(""); err != nil {
		t.Fatalf("ApplySecretsPassword() failed: %v", err)
	}
	if loaded.OpenAICompat.APIKey != "sk-local-test" {
		t.Errorf("APIKey = %q", loaded.OpenAICompat.APIKey)
	}
}
