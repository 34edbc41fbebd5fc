//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.mentormirror.app"

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "mentormirror")
	}
	return "mentormirror-data"
}

func newPlatformBackend() ConfigBackend {
	return defaultsBackend{domain: defaultsDomain}
}

func newPlatformSecrets() secretStore {
	return keychainSecrets{service: secretService}
}

// defaultsBackend stores keys in UserDefaults. Values read back as strings
// and are parsed against the key's type.
type defaultsBackend struct {
	domain string
}

func (b defaultsBackend) Lookup(key string) (any, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("defaults read %s: %w: %s", key, err, s)
	}
	return s, true, nil
}

func (b defaultsBackend) Store(key string, val any) error {
	var flag, s string
	switch v := val.(type) {
	case int:
		flag, s = "-int", strconv.Itoa(v)
	case float64:
		flag, s = "-float", strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		flag, s = "-bool", strconv.FormatBool(v)
	default:
		flag, s = "-string", fmt.Sprint(v)
	}
	return exec.Command("defaults", "write", b.domain, key, flag, s).Run()
}

func (b defaultsBackend) Delete(key string) error {
	return exec.Command("defaults", "delete", b.domain, key).Run()
}

// keychainSecrets stores credentials as generic passwords in the login
// keychain.
type keychainSecrets struct {
	service string
}

func (k keychainSecrets) Get(account string) (string, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", k.service, "-a", account, "-w").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (k keychainSecrets) Set(account, value string) error {
	return exec.Command("security", "add-generic-password", "-U", "-s", k.service, "-a", account, "-w", value).Run()
}
