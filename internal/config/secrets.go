package config

import (
	"fmt"
	"strings"
)

const secretService = "mentormirror"

// secretStore holds provider credentials under their account name (the last
// segment of a secret key, e.g. "openai_api_key").
type secretStore interface {
	Get(account string) (string, error)
	Set(account, value string) error
}

// fileSecrets keeps credentials in a flat JSON object readable only by the
// owner: {"openai_api_key": "sk-..."}.
type fileSecrets struct {
	file jsonFile
}

func newFileSecrets(path string) *fileSecrets {
	return &fileSecrets{file: jsonFile{path: path, perm: 0o600}}
}

func (s *fileSecrets) Get(account string) (string, error) {
	data, err := s.file.read()
	if err != nil {
		return "", err
	}
	v, ok := data[account].(string)
	if !ok {
		return "", fmt.Errorf("secret %q not found", account)
	}
	return strings.TrimSpace(v), nil
}

func (s *fileSecrets) Set(account, value string) error {
	return s.file.update(func(data map[string]any) { data[account] = value })
}

// applySecretStore fills still-empty secrets from the secret store.
func applySecretStore(cfg *Config, store secretStore) {
	for _, s := range specs {
		if !s.secret {
			continue
		}
		if v, _ := s.extract(*cfg).(string); v != "" {
			continue
		}
		if key, err := store.Get(s.account()); err == nil && key != "" {
			s.apply(cfg, key)
		}
	}
}
