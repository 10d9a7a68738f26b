// Package credentials stores API keys for hosted embedding and language model
// providers in credentials.toml, next to config.toml, so they can stay out of
// the shareable config file.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/ragline/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps provider names to their conventional environment variables.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Store reads and writes credentials.toml in the .ragline/ directory.
type Store struct {
	path string
}

// NewStore resolves the .ragline/ directory from override and returns a
// Store for its credentials.toml.
func NewStore(override string) (*Store, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Store{path: filepath.Join(target, credentialsFile)}, nil
}

// Path returns the credentials file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored credentials, or an empty set when the file does
// not exist yet.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{Version: currentVersion, Providers: map[string]Provider{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	f := &File{}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if f.Providers == nil {
		f.Providers = map[string]Provider{}
	}

	return f, nil
}

func (s *Store) save(f *File) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Set stores key for provider, replacing any previous key.
func (s *Store) Set(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q", provider)
	}

	f, err := s.Load()
	if err != nil {
		return err
	}
	f.Providers[provider] = Provider{APIKey: key}

	return s.save(f)
}

// Get returns the stored key for provider, or "" when none is stored.
func (s *Store) Get(provider string) (string, error) {
	f, err := s.Load()
	if err != nil {
		return "", err
	}
	return f.Providers[provider].APIKey, nil
}

// Remove deletes the stored key for provider. Removing an absent key is not
// an error.
func (s *Store) Remove(provider string) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := f.Providers[provider]; !ok {
		return nil
	}
	delete(f.Providers, provider)

	return s.save(f)
}

// Providers lists the providers with stored keys, sorted.
func (s *Store) Providers() ([]string, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(f.Providers)), nil
}

// Resolve returns the API key for provider. A configured key wins, then the
// stored key, then the provider's environment variable.
func (s *Store) Resolve(provider, configured string) (string, error) {
	if configured != "" || !IsSupportedProvider(provider) {
		return configured, nil
	}

	key, err := s.Get(provider)
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}

	return os.Getenv(EnvVarForProvider(provider)), nil
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the providers that authenticate with an API key.
func SupportedProviders() []string {
	return slices.Sorted(maps.Keys(providerEnvVars))
}

// IsSupportedProvider reports whether provider authenticates with an API key.
func IsSupportedProvider(provider string) bool {
	_, ok := providerEnvVars[provider]
	return ok
}
