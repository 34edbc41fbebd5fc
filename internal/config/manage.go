package config

import (
	"fmt"
	"strings"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all non-secret key/value pairs from cfg.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SecretStatus reports, per secret key, whether a value is present in cfg.
// Values themselves are never returned.
func SecretStatus(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if !s.secret {
			continue
		}
		state := "not set"
		if v, _ := s.extract(cfg).(string); v != "" {
			state = "set"
		}
		result = append(result, KeyInfo{Key: s.key, EnvVar: s.env, Value: state})
	}
	return result
}

// SetKey writes a non-secret config key to the platform backend.
func SetKey(key, value string) error {
	return setKeyIn(newPlatformBackend(), key, value)
}

// UnsetKey removes a key from the platform backend so its default applies.
func UnsetKey(key string) error {
	return unsetKeyIn(newPlatformBackend(), key)
}

func lookupSpec(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key == key {
			return s, nil
		}
	}
	return keySpec{}, fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys(), ", "))
}

func setKeyIn(b ConfigBackend, key, value string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}
	if s.secret {
		return fmt.Errorf("cannot set secret %q via config; use `config set-secret` or environment variable %s", key, s.env)
	}
	v, err := parseTyped(s.typ, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return b.Store(key, v)
}

func unsetKeyIn(b ConfigBackend, key string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}
	if s.secret {
		return fmt.Errorf("%q is a secret and is not kept in the config backend", key)
	}
	return b.Delete(key)
}

// SetSecret stores a provider credential in the platform secret store.
func SetSecret(key, value string) error {
	return setSecretIn(newPlatformSecrets(), key, value)
}

func setSecretIn(store secretStore, key, value string) error {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if !s.secret {
			return fmt.Errorf("%q is not a secret; use `config set`", key)
		}
		return store.Set(s.account(), value)
	}
	return fmt.Errorf("unknown secret key %q; valid secrets: %s", key, strings.Join(SecretKeys(), ", "))
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// SecretKeys returns the list of secret key names.
func SecretKeys() []string {
	var keys []string
	for _, s := range specs {
		if s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
