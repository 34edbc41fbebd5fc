package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	LLM     LLMConfig
	Ollama  OllamaConfig
	Events  EventsConfig
	Speech  SpeechConfig
	Keys    KeysConfig
}

type ServerConfig struct {
	Port          int
	MCPPort       int
	AllowedOrigin string
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver      string
	DataDir     string
	DatabaseURL string
}

type LLMConfig struct {
	DefaultService string
	DefaultModel   string
	Temperature    float64
	Timeout        string
}

type OllamaConfig struct {
	BaseURL string
}

type EventsConfig struct {
	NATSURL string
}

type SpeechConfig struct {
	Model string
}

// KeysConfig holds provider credentials. These are secrets: they are never
// read from or written to the config backend.
type KeysConfig struct {
	OpenAI     string
	Google     string
	Anthropic  string
	OpenRouter string
	ElevenLabs string
	NATSToken  string
}

const defaultCapabilityTimeout = 60 * time.Second

// CapabilityTimeout returns the parsed LLM/TTS call deadline, falling back to
// 60s when the configured value is empty or invalid.
func (c LLMConfig) CapabilityTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return defaultCapabilityTimeout
	}
	return d
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          4000,
			MCPPort:       4001,
			AllowedOrigin: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: defaultDataDir(),
		},
		LLM: LLMConfig{
			DefaultService: "openai",
			DefaultModel:   "gpt-4o-mini",
			Temperature:    0.7,
			Timeout:        "60s",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Speech: SpeechConfig{
			Model: "eleven_monolingual_v1",
		},
	}
}

// Load reads configuration from the platform-native backend, a .env file in
// the working directory, environment variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.mentormirror.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/mentormirror/config.json and secrets fall back to
// $XDG_DATA_HOME/mentormirror/secrets.json.
//
// Environment variables (MENTORMIRROR_*) override backend values on all
// platforms. No provider key is required; a missing key only disables that
// provider.
func Load() (Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return Config{}, err
	}
	return loadWith(newPlatformBackend(), newPlatformSecrets())
}

// loadDotenv exports variables from the given files without overriding
// anything already set in the environment. Missing files are ignored.
func loadDotenv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecretStore(&cfg, secrets)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("missing required config: storage.database_url must be set when storage.driver is postgres (env MENTORMIRROR_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q: want memory, sqlite or postgres", cfg.Storage.Driver)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return nil
}
