// Package config loads the settings shared by the web and terminal widgets.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MegaGrindStone/taskflow-chat/internal/services"
	"github.com/MegaGrindStone/taskflow-chat/internal/widget"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is where the TaskFlow API is expected when nothing else is configured.
	DefaultBaseURL = "http://127.0.0.1:8000"
	// BaseURLEnv overrides the TaskFlow API base URL.
	BaseURLEnv = "TASKFLOW_API_URL"

	defaultPort     = "8080"
	defaultLogLevel = "info"
	appDirName      = "taskflow-chat"
)

// BackendConfig builds the transport a widget sends its submissions through.
type BackendConfig interface {
	Transport(logger *slog.Logger) (widget.Transport, error)
}

// BaseBackendConfig contains the common fields for all backend configurations.
type BaseBackendConfig struct {
	Provider string `yaml:"provider"`
}

// Config is the decoded configuration file.
type Config struct {
	Port     string
	LogLevel string
	Greeting string
	Backend  BackendConfig
}

type taskFlowConfig struct {
	BaseBackendConfig `yaml:",inline"`
	BaseURL           string        `yaml:"baseURL"`
	Timeout           time.Duration `yaml:"timeout"`
}

type ollamaConfig struct {
	BaseBackendConfig `yaml:",inline"`
	Host              string `yaml:"host"`
	Model             string `yaml:"model"`
	SystemPrompt      string `yaml:"systemPrompt"`
}

type openAIConfig struct {
	BaseBackendConfig `yaml:",inline"`
	APIKey            string `yaml:"apiKey"`
	BaseURL           string `yaml:"baseURL"`
	Model             string `yaml:"model"`
	SystemPrompt      string `yaml:"systemPrompt"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Port:     defaultPort,
		LogLevel: defaultLogLevel,
		Greeting: widget.DefaultGreeting,
		Backend: &taskFlowConfig{
			BaseBackendConfig: BaseBackendConfig{Provider: "taskflow"},
			BaseURL:           DefaultBaseURL,
		},
	}
}

// UnmarshalYAML decodes the configuration, picking the backend type from its provider field. Fields
// that are absent keep their default values.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port     string         `yaml:"port"`
		LogLevel string         `yaml:"logLevel"`
		Greeting *string        `yaml:"greeting"`
		Backend  map[string]any `yaml:"backend"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	*c = Default()
	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	if rawConfig.LogLevel != "" {
		c.LogLevel = rawConfig.LogLevel
	}
	if rawConfig.Greeting != nil {
		c.Greeting = *rawConfig.Greeting
	}

	if rawConfig.Backend == nil {
		return nil
	}

	provider, ok := rawConfig.Backend["provider"].(string)
	if !ok {
		return fmt.Errorf("backend provider is required")
	}

	backendRawYAML, err := yaml.Marshal(rawConfig.Backend)
	if err != nil {
		return err
	}

	var backend BackendConfig
	switch provider {
	case "taskflow":
		backend = &taskFlowConfig{BaseURL: DefaultBaseURL}
	case "ollama":
		backend = &ollamaConfig{}
	case "openai":
		backend = &openAIConfig{}
	default:
		return fmt.Errorf("unknown backend provider: %s", provider)
	}

	if err := yaml.Unmarshal(backendRawYAML, backend); err != nil {
		return err
	}

	c.Backend = backend
	return nil
}

// Load reads the configuration file at path, which may be missing, after loading a .env file from
// the working directory. The TASKFLOW_API_URL environment variable overrides the TaskFlow base URL.
func Load(path string) (Config, error) {
	// A missing .env file is the normal case.
	_ = godotenv.Load(".env")

	cfg := Default()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("error opening config file: %w", err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if u := os.Getenv(BaseURLEnv); u != "" {
		cfg.OverrideBaseURL(u)
	}

	return cfg, nil
}

// OverrideBaseURL replaces the base URL of a TaskFlow backend. Other backends are left alone.
func (c *Config) OverrideBaseURL(u string) {
	if tf, ok := c.Backend.(*taskFlowConfig); ok {
		tf.BaseURL = u
	}
}

// BaseURL returns the TaskFlow base URL, or an empty string for other backends.
func (c Config) BaseURL() string {
	if tf, ok := c.Backend.(*taskFlowConfig); ok {
		return tf.BaseURL
	}
	return ""
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Dir returns the per-user directory holding the configuration, the identity database and logs,
// creating it if needed.
func Dir() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	dir := filepath.Join(cfgDir, appDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}
	return dir, nil
}

func (t taskFlowConfig) Transport(logger *slog.Logger) (widget.Transport, error) {
	if t.BaseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if t.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative")
	}
	return services.NewTaskFlow(t.BaseURL, t.Timeout, logger), nil
}

func (o ollamaConfig) Transport(*slog.Logger) (widget.Transport, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	return services.NewOllama(host, o.Model, o.SystemPrompt)
}

func (o openAIConfig) Transport(logger *slog.Logger) (widget.Transport, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, o.SystemPrompt, logger), nil
}
