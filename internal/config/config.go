// Package config loads and persists the application configuration: model
// backend settings, loop tunables, storage paths, and the control-plane
// listener. Sensitive fields are stored encrypted when a secrets password is
// active.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/codefionn/agentwerk/internal/consts"
	"github.com/codefionn/agentwerk/internal/secrets"
)

// ServeConfig configures the HTTP control plane.
type ServeConfig struct {
	Addr      string `json:"addr"`
	AuthToken string `json:"auth_token,omitempty"`
}

// OpenAICompatConfig points at an OpenAI-compatible completion endpoint used
// instead of Ollama when BaseURL is set.
type OpenAICompatConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// SecretsSettings keeps track of password-protection state.
type SecretsSettings struct {
	PasswordSet bool   `json:"password_set,omitempty"`
	Verifier    string `json:"verifier,omitempty"`
}

// Config represents application configuration.
type Config struct {
	OllamaURL      string            `json:"ollama_url"`
	Model          string            `json:"model,omitempty"`
	FallbackModel  string            `json:"fallback_model,omitempty"`
	ModelOverrides map[string]string `json:"model_overrides,omitempty"`
	Temperature    float64           `json:"temperature"`
	NumPredict     int               `json:"num_predict,omitempty"`

	MaxIterations      int `json:"max_iterations"`
	PromptBudgetChars  int `json:"prompt_budget_chars"`
	RequestTimeoutSecs int `json:"request_timeout_seconds"`
	StallTimeoutSecs   int `json:"stall_timeout_seconds"`
	CommandTimeoutSecs int `json:"command_timeout_seconds"`

	WorkingDir     string `json:"working_dir"`
	MemoryDBPath   string `json:"memory_db_path,omitempty"`
	KnowledgeDir   string `json:"knowledge_dir,omitempty"`
	PluginDir      string `json:"plugin_dir,omitempty"`
	DisableSandbox bool   `json:"disable_sandbox,omitempty"`

	LogLevel string `json:"log_level"`
	LogPath  string `json:"-"`

	Serve        ServeConfig        `json:"serve"`
	OpenAICompat OpenAICompatConfig `json:"openai_compat,omitempty"`
	Secrets      SecretsSettings    `json:"secrets,omitempty"`

	secretsPassword string `json:"-"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "agentwerk")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "agentwerk")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "agentwerk")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "agentwerk")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "agentwerk")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "agentwerk")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "agentwerk")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "agentwerk")
	}
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		OllamaURL:          "http://localhost:11434",
		Temperature:        0.1,
		MaxIterations:      consts.DefaultMaxIterations,
		PromptBudgetChars:  consts.DefaultPromptBudget,
		RequestTimeoutSecs: 600,
		StallTimeoutSecs:   90,
		CommandTimeoutSecs: int(consts.DefaultCommandTimeout.Seconds()),
		WorkingDir:         ".",
		MemoryDBPath:       filepath.Join(stateDir, "memory.db"),
		KnowledgeDir:       filepath.Join(stateDir, "knowledge"),
		PluginDir:          filepath.Join(defaultConfigDir(), "plugins"),
		LogLevel:           "info",
		LogPath:            filepath.Join(stateDir, "agentwerk.log"),
		Serve: ServeConfig{
			Addr: "127.0.0.1:8642",
		},
	}
}

// Load loads configuration from path, merged over the defaults, then applies
// AGENTWERK_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.applyEnv()
			return config, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	stateDir := defaultStateDir()
	if config.OllamaURL == "" {
		config.OllamaURL = "http://localhost:11434"
	}
	if config.WorkingDir == "" {
		config.WorkingDir = "."
	}
	if config.MemoryDBPath == "" {
		config.MemoryDBPath = filepath.Join(stateDir, "memory.db")
	}
	if config.KnowledgeDir == "" {
		config.KnowledgeDir = filepath.Join(stateDir, "knowledge")
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogPath == "" {
		config.LogPath = filepath.Join(stateDir, "agentwerk.log")
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = consts.DefaultMaxIterations
	}
	if config.PromptBudgetChars <= 0 {
		config.PromptBudgetChars = consts.DefaultPromptBudget
	}

	config.applyEnv()
	return config, nil
}

// applyEnv applies AGENTWERK_* environment variables over the loaded values.
func (c *Config) applyEnv() {
	setString := func(key string, target *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}
	setInt := func(key string, target *int) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			if n, err := strconv.Atoi(value); err == nil {
				*target = n
			}
		}
	}

	setString("AGENTWERK_OLLAMA_URL", &c.OllamaURL)
	setString("AGENTWERK_MODEL", &c.Model)
	setString("AGENTWERK_FALLBACK_MODEL", &c.FallbackModel)
	setInt("AGENTWERK_MAX_ITERATIONS", &c.MaxIterations)
	setString("AGENTWERK_LOG_LEVEL", &c.LogLevel)
	setString("AGENTWERK_MEMORY_DB", &c.MemoryDBPath)
	setString("AGENTWERK_KNOWLEDGE_DIR", &c.KnowledgeDir)
	setString("AGENTWERK_PLUGIN_DIR", &c.PluginDir)
	setString("AGENTWERK_SERVE_ADDR", &c.Serve.Addr)
	setString("AGENTWERK_SERVE_TOKEN", &c.Serve.AuthToken)
	setString("AGENTWERK_OPENAI_BASE_URL", &c.OpenAICompat.BaseURL)
	setString("AGENTWERK_OPENAI_API_KEY", &c.OpenAICompat.APIKey)
}

// Save writes the configuration to path, encrypting sensitive fields when a
// secrets password is active.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := c.marshalWithEncryptedSecrets()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetConfigPath returns the default config path.
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// ApplySecretsPassword records the active password and decrypts any
// encrypted fields.
func (c *Config) ApplySecretsPassword(password string) error {
	if err := c.verifyPassword(password); err != nil {
		return err
	}

	fields := []*string{
		&c.Serve.AuthToken,
		&c.OpenAICompat.APIKey,
	}
	for _, field := range fields {
		if err := decryptField(field, password); err != nil {
			return err
		}
	}

	c.secretsPassword = password
	return nil
}

// SecretsPassword returns the active secrets password (empty by default).
func (c *Config) SecretsPassword() string {
	return c.secretsPassword
}

// UpdateSecretsPassword switches the runtime password and updates the
// persisted flags.
func (c *Config) UpdateSecretsPassword(password string) error {
	if c == nil {
		return nil
	}
	c.Secrets.PasswordSet = password != ""
	c.Secrets.Verifier = ""
	c.secretsPassword = password
	return nil
}

func (c *Config) marshalWithEncryptedSecrets() ([]byte, error) {
	copyCfg := *c

	var err error
	copyCfg.Serve.AuthToken, err = encryptField(c.Serve.AuthToken, c.secretsPassword)
	if err != nil {
		return nil, err
	}
	copyCfg.OpenAICompat.APIKey, err = encryptField(c.OpenAICompat.APIKey, c.secretsPassword)
	if err != nil {
		return nil, err
	}

	if copyCfg.Secrets.PasswordSet {
		copyCfg.Secrets.Verifier, err = encryptField("agentwerk", c.secretsPassword)
		if err != nil {
			return nil, err
		}
	} else {
		copyCfg.Secrets.Verifier = ""
	}

	return json.MarshalIndent(&copyCfg, "", "  ")
}

func (c *Config) verifyPassword(password string) error {
	if !c.Secrets.PasswordSet || c.Secrets.Verifier == "" {
		return nil
	}
	_, _, err := secrets.DecryptString(c.Secrets.Verifier, password)
	return err
}

func encryptField(value, password string) (string, error) {
	if value == "" {
		return "", nil
	}
	return secrets.EncryptString(value, password)
}

func decryptField(value *string, password string) error {
	if value == nil || *value == "" {
		return nil
	}
	plain, encrypted, err := secrets.DecryptString(*value, password)
	if err != nil && encrypted {
		return err
	}
	if encrypted && err == nil {
		*value = plain
	}
	return nil
}
