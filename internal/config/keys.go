package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	aliases []string // conventional provider env names, consulted after env
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// account is the secret-store account name for a secret key.
func (s keySpec) account() string {
	if i := strings.LastIndex(s.key, "."); i >= 0 {
		return s.key[i+1:]
	}
	return s.key
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "MENTORMIRROR_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "MENTORMIRROR_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.allowed_origin", typ: kString, env: "MENTORMIRROR_SERVER_ALLOWED_ORIGIN",
		apply:   func(cfg *Config, v any) { cfg.Server.AllowedOrigin = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AllowedOrigin },
	},
	{
		key: "log.level", typ: kString, env: "MENTORMIRROR_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "storage.driver", typ: kString, env: "MENTORMIRROR_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MENTORMIRROR_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.database_url", typ: kString, env: "MENTORMIRROR_DATABASE_URL",
		aliases: []string{"DATABASE_URL"},
		apply:   func(cfg *Config, v any) { cfg.Storage.DatabaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DatabaseURL },
	},
	{
		key: "llm.default_service", typ: kString, env: "MENTORMIRROR_LLM_DEFAULT_SERVICE",
		apply:   func(cfg *Config, v any) { cfg.LLM.DefaultService = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.DefaultService },
	},
	{
		key: "llm.default_model", typ: kString, env: "MENTORMIRROR_LLM_DEFAULT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.DefaultModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.DefaultModel },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "MENTORMIRROR_LLM_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.timeout", typ: kString, env: "MENTORMIRROR_LLM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.LLM.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Timeout },
	},
	{
		key: "ollama.base_url", typ: kString, env: "MENTORMIRROR_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "events.nats_url", typ: kString, env: "MENTORMIRROR_NATS_URL",
		aliases: []string{"NATS_URL"},
		apply:   func(cfg *Config, v any) { cfg.Events.NATSURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Events.NATSURL },
	},
	{
		key: "speech.model", typ: kString, env: "MENTORMIRROR_SPEECH_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Speech.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Speech.Model },
	},
	{
		key: "keys.openai_api_key", typ: kString, env: "MENTORMIRROR_OPENAI_API_KEY",
		aliases: []string{"OPENAI_API_KEY"}, secret: true,
		apply:   func(cfg *Config, v any) { cfg.Keys.OpenAI = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.OpenAI },
	},
	{
		key: "keys.google_api_key", typ: kString, env: "MENTORMIRROR_GOOGLE_API_KEY",
		aliases: []string{"GOOGLE_API_KEY"}, secret: true,
		apply:   func(cfg *Config, v any) { cfg.Keys.Google = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.Google },
	},
	{
		key: "keys.anthropic_api_key", typ: kString, env: "MENTORMIRROR_ANTHROPIC_API_KEY",
		aliases: []string{"ANTHROPIC_API_KEY"}, secret: true,
		apply:   func(cfg *Config, v any) { cfg.Keys.Anthropic = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.Anthropic },
	},
	{
		key: "keys.openrouter_api_key", typ: kString, env: "MENTORMIRROR_OPENROUTER_API_KEY",
		aliases: []string{"OPENROUTER_API_KEY"}, secret: true,
		apply:   func(cfg *Config, v any) { cfg.Keys.OpenRouter = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.OpenRouter },
	},
	{
		key: "keys.elevenlabs_api_key", typ: kString, env: "MENTORMIRROR_ELEVENLABS_API_KEY",
		aliases: []string{"ELEVENLABS_API_KEY"}, secret: true,
		apply:   func(cfg *Config, v any) { cfg.Keys.ElevenLabs = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.ElevenLabs },
	},
	{
		key: "keys.nats_token", typ: kString, env: "MENTORMIRROR_NATS_TOKEN",
		aliases: []string{"NATS_TOKEN"}, secret: true,
		apply:   func(cfg *Config, v any) { cfg.Keys.NATSToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Keys.NATSToken },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Lookup(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok {
			continue
		}
		v, err := coerce(s.typ, raw)
		if err != nil {
			slog.Warn("ignoring unparsable config value", "key", s.key, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

// coerce converts a stored value to the Go type of typ. Backends may hand
// back strings (UserDefaults) or JSON-decoded numbers and booleans.
func coerce(typ keyType, raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return parseTyped(typ, strings.TrimSpace(v))
	case float64:
		switch typ {
		case kFloat:
			return v, nil
		case kInt:
			if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			return int(v), nil
		}
	case int:
		switch typ {
		case kInt:
			return v, nil
		case kFloat:
			return float64(v), nil
		}
	case bool:
		if typ == kBool {
			return v, nil
		}
	}
	return nil, fmt.Errorf("unexpected %T value", raw)
}

// lookupEnv returns the first non-empty value among the key's env var and
// its aliases.
func (s keySpec) lookupEnv() (string, string) {
	if s.env != "" {
		if raw := os.Getenv(s.env); raw != "" {
			return s.env, raw
		}
	}
	for _, a := range s.aliases {
		if raw := os.Getenv(a); raw != "" {
			return a, raw
		}
	}
	return "", ""
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := s.lookupEnv()
		if raw == "" {
			continue
		}
		v, err := parseTyped(s.typ, raw)
		if err != nil {
			slog.Warn("ignoring unparsable env var", "env", name, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}

func parseTyped(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}
