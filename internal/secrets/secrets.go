// Package secrets reads credentials by key at call time. Values are never
// cached or persisted.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when a key is absent or blank.
var ErrNotFound = errors.New("secret not found")

// Store is a read-only key lookup.
type Store interface {
	Get(key string) (string, error)
}

// Env reads secrets from the process environment.
type Env struct{}

// Get returns the trimmed value of the environment variable key.
func (Env) Get(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

// Map is an in-memory store, used by tests and one-off runs.
type Map map[string]string

// Get returns the trimmed value stored under key.
func (m Map) Get(key string) (string, error) {
	v := strings.TrimSpace(m[key])
	if v == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

// Require reads every key and reports all missing ones together.
func Require(s Store, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	var missing []string
	for _, k := range keys {
		v, err := s.Get(k)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			missing = append(missing, k)
			continue
		}
		out[k] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrNotFound)
	}
	return out, nil
}
