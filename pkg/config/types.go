package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/pkg/chunker"
	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/retry"
)

// Config represents the persistent ragline configuration stored as config.toml
// in the .ragline/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version        int                  `toml:"version"`
	Chunking       ChunkingConfig       `toml:"chunking"`
	Retrieval      RetrievalConfig      `toml:"retrieval"`
	Calls          CallsConfig          `toml:"calls"`
	Embedding      EmbeddingConfig      `toml:"embedding"`
	EmbeddingCache EmbeddingCacheConfig `toml:"embedding_cache"`
	LLM            LLMConfig            `toml:"llm"`
	VectorStore    VectorStoreConfig    `toml:"vector_store"`
	Storage        StorageConfig        `toml:"storage"`
	Events         EventsConfig         `toml:"events"`
	API            APIConfig            `toml:"api"`
	Client         ClientConfig         `toml:"client"`
	Ingest         IngestConfig         `toml:"ingest"`
}

// ChunkingConfig holds the chunk size and overlap, in characters.
type ChunkingConfig struct {
	Size    int `toml:"size,omitempty"`
	Overlap int `toml:"overlap"`
}

// RetrievalConfig holds question answering settings.
type RetrievalConfig struct {
	TopK int `toml:"top_k,omitempty"`

	// PromptTemplate must contain {question} and {context}. Empty selects the
	// built-in template.
	PromptTemplate string `toml:"prompt_template,omitempty"`
}

// CallsConfig bounds every embedder, vector store and model call.
// Durations use Go syntax, e.g. "30s" or "200ms".
type CallsConfig struct {
	Timeout        string  `toml:"timeout,omitempty"`
	MaxAttempts    int     `toml:"max_attempts,omitempty"`
	InitialBackoff string  `toml:"initial_backoff,omitempty"`
	MaxBackoff     string  `toml:"max_backoff,omitempty"`
	EmbedRateLimit float64 `toml:"embed_rate_limit,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Region     string `toml:"region,omitempty"`
}

// EmbeddingCacheConfig enables the Redis embedding cache when Target is set.
type EmbeddingCacheConfig struct {
	Target string `toml:"target,omitempty"`
	TTL    string `toml:"ttl,omitempty"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	Region    string `toml:"region,omitempty"`
	MaxTokens int    `toml:"max_tokens,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// StorageConfig holds document registry settings.
type StorageConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EventsConfig holds event stream settings. Brokers is comma separated.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. ragline search --remote). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// IngestConfig sizes the ingestion worker pool.
type IngestConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// ChunkPolicy returns the chunking section as a chunker.Policy.
func (c *Config) ChunkPolicy() chunker.Policy {
	return chunker.Policy{Size: c.Chunking.Size, Overlap: c.Chunking.Overlap}
}

// CallTimeout returns the parsed per-call timeout.
func (c *Config) CallTimeout() time.Duration {
	d, _ := parseDuration(c.Calls.Timeout)
	return d
}

// RetryPolicy returns the calls section as a retry.Policy.
func (c *Config) RetryPolicy() retry.Policy {
	initial, _ := parseDuration(c.Calls.InitialBackoff)
	maxBackoff, _ := parseDuration(c.Calls.MaxBackoff)
	return retry.Policy{
		MaxAttempts:    c.Calls.MaxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     maxBackoff,
		Jitter:         true,
	}
}

// CacheTTL returns the parsed embedding cache TTL.
func (c *Config) CacheTTL() time.Duration {
	d, _ := parseDuration(c.EmbeddingCache.TTL)
	return d
}

// EventBrokers splits events.brokers on commas.
func (c *Config) EventBrokers() []string {
	var brokers []string
	for b := range strings.SplitSeq(c.Events.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Validate checks the settings every command depends on. Provider-specific
// requirements, such as API keys, are checked when the provider is built.
func (c *Config) Validate() error {
	if err := c.ChunkPolicy().Validate(); err != nil {
		return err
	}
	if c.Retrieval.TopK <= 0 {
		return ragerr.Invalid(fmt.Sprintf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Calls.MaxAttempts < 0 {
		return ragerr.Invalid("calls.max_attempts must not be negative")
	}
	if c.Calls.EmbedRateLimit < 0 {
		return ragerr.Invalid("calls.embed_rate_limit must not be negative")
	}
	for key, value := range map[string]string{
		"calls.timeout":         c.Calls.Timeout,
		"calls.initial_backoff": c.Calls.InitialBackoff,
		"calls.max_backoff":     c.Calls.MaxBackoff,
		"embedding_cache.ttl":   c.EmbeddingCache.TTL,
	} {
		if _, err := parseDuration(value); err != nil {
			return ragerr.Invalid(fmt.Sprintf("%s: %v", key, err))
		}
	}
	for key, value := range map[string]string{
		"embedding.provider":    c.Embedding.Provider,
		"embedding.model":       c.Embedding.Model,
		"llm.provider":          c.LLM.Provider,
		"vector_store.provider": c.VectorStore.Provider,
	} {
		if value == "" {
			return ragerr.Invalid(key + " is required")
		}
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %s", s)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := parseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = 0
				return nil
			}
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"chunking.size":             intKey("chunking.size", func(c *Config) *int { return &c.Chunking.Size }),
	"chunking.overlap":          intKey("chunking.overlap", func(c *Config) *int { return &c.Chunking.Overlap }),
	"retrieval.top_k":           intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),
	"retrieval.prompt_template": stringKey(func(c *Config) *string { return &c.Retrieval.PromptTemplate }),
	"calls.timeout":             durationKey("calls.timeout", func(c *Config) *string { return &c.Calls.Timeout }),
	"calls.max_attempts":        intKey("calls.max_attempts", func(c *Config) *int { return &c.Calls.MaxAttempts }),
	"calls.initial_backoff":     durationKey("calls.initial_backoff", func(c *Config) *string { return &c.Calls.InitialBackoff }),
	"calls.max_backoff":         durationKey("calls.max_backoff", func(c *Config) *string { return &c.Calls.MaxBackoff }),
	"calls.embed_rate_limit": {
		get: func(c *Config) string {
			if c.Calls.EmbedRateLimit == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Calls.EmbedRateLimit, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Calls.EmbedRateLimit = 0
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for calls.embed_rate_limit: %w", err)
			}
			c.Calls.EmbedRateLimit = f
			return nil
		},
	},
	"embedding.provider":      stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":        stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":         stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions":    uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),
	"embedding.api_key":       stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"embedding.region":        stringKey(func(c *Config) *string { return &c.Embedding.Region }),
	"embedding_cache.target":  stringKey(func(c *Config) *string { return &c.EmbeddingCache.Target }),
	"embedding_cache.ttl":     durationKey("embedding_cache.ttl", func(c *Config) *string { return &c.EmbeddingCache.TTL }),
	"llm.provider":            stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":              stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":               stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.api_key":             stringKey(func(c *Config) *string { return &c.LLM.APIKey }),
	"llm.region":              stringKey(func(c *Config) *string { return &c.LLM.Region }),
	"llm.max_tokens":          intKey("llm.max_tokens", func(c *Config) *int { return &c.LLM.MaxTokens }),
	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"storage.provider":        stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.target":          stringKey(func(c *Config) *string { return &c.Storage.Target }),
	"events.provider":         stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":          stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":            stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"api.listen":              stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target":       stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"ingest.workers":          uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),
	"ingest.queue_size":       uintKey("ingest.queue_size", func(c *Config) *uint { return &c.Ingest.QueueSize }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"chunking.size",
	"chunking.overlap",
	"retrieval.top_k",
	"retrieval.prompt_template",
	"calls.timeout",
	"calls.max_attempts",
	"calls.initial_backoff",
	"calls.max_backoff",
	"calls.embed_rate_limit",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.api_key",
	"embedding.region",
	"embedding_cache.target",
	"embedding_cache.ttl",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.api_key",
	"llm.region",
	"llm.max_tokens",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"storage.provider",
	"storage.target",
	"events.provider",
	"events.brokers",
	"events.topic",
	"api.listen",
	"client.api_target",
	"ingest.workers",
	"ingest.queue_size",
}

// secretKeys are masked by "ragline config list".
var secretKeys = map[string]bool{
	"embedding.api_key": true,
	"llm.api_key":       true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
