package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "popular-data"
		}
	}
	return filepath.Join(dir, "popular")
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "popular", "config.toml")
}

// fileBackend stores config as a TOML document with one table per key
// section.
type fileBackend struct {
	path string
	data map[string]any
}

func newFileBackend(path string) (*fileBackend, error) {
	b := &fileBackend{path: path, data: make(map[string]any)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &b.data); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return b, nil
}

func (b *fileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := toml.Marshal(b.data)
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

// lookup walks the dotted key through nested tables.
func (b *fileBackend) lookup(key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = b.data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (b *fileBackend) set(key string, val any) error {
	parts := strings.Split(key, ".")
	m := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = val
	return b.save()
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v), true, nil
	}
	return s, true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int64:
		if val < math.MinInt || val > math.MaxInt {
			return 0, true, fmt.Errorf("value %v for %s is out of range", val, key)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *fileBackend) GetStrings(key string) ([]string, bool, error) {
	v, ok := b.lookup(key)
	if !ok {
		return nil, false, nil
	}
	switch val := v.(type) {
	case []string:
		return val, true, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return nil, true, fmt.Errorf("invalid list element %v for %s", e, key)
			}
			out = append(out, s)
		}
		return out, true, nil
	case string:
		return splitList(val), true, nil
	default:
		return nil, true, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	return b.set(key, val)
}

func (b *fileBackend) SetInt(key string, val int) error {
	return b.set(key, int64(val))
}

func (b *fileBackend) SetStrings(key string, val []string) error {
	return b.set(key, val)
}

func (b *fileBackend) Delete(key string) error {
	parts := strings.Split(key, ".")
	m := b.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			return nil
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
	return b.save()
}

// splitList parses a comma-separated list, dropping empty elements.
func splitList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
