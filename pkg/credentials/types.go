package credentials

// File is the on-disk layout of credentials.toml.
type File struct {
	Version   int                 `toml:"version"`
	Providers map[string]Provider `toml:"providers"`
}

// Provider holds the stored API key for one hosted model provider.
type Provider struct {
	APIKey string `toml:"api_key"`
}
