package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigBackend persists non-secret keys from the specs table. Values are
// returned as stored; applyBackend coerces them to the key's type.
type ConfigBackend interface {
	Lookup(key string) (val any, ok bool, err error)
	Store(key string, val any) error
	Delete(key string) error
}

// fileBackend keeps keys in a flat JSON object, e.g.
// {"server.port": 4000, "llm.temperature": 0.7, "storage.driver": "sqlite"}.
// Numbers and strings keep their JSON types so the file stays hand-editable.
type fileBackend struct {
	file jsonFile
}

func newFileBackend(path string) *fileBackend {
	return &fileBackend{file: jsonFile{path: path, perm: 0o600}}
}

func (b *fileBackend) Lookup(key string) (any, bool, error) {
	data, err := b.file.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (b *fileBackend) Store(key string, val any) error {
	return b.file.update(func(data map[string]any) { data[key] = val })
}

func (b *fileBackend) Delete(key string) error {
	return b.file.update(func(data map[string]any) { delete(data, key) })
}

// jsonFile is a JSON object on disk. A missing file reads as empty.
type jsonFile struct {
	path string
	perm os.FileMode
}

func (f jsonFile) read() (map[string]any, error) {
	data := map[string]any{}
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return data, nil
}

func (f jsonFile) update(fn func(map[string]any)) error {
	data, err := f.read()
	if err != nil {
		return err
	}
	fn(data)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(f.path), err)
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, f.perm)
}
