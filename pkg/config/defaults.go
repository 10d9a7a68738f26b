package config

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 4

	defaultCallTimeout    = "30s"
	defaultMaxAttempts    = 1
	defaultInitialBackoff = "200ms"
	defaultMaxBackoff     = "5s"

	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768
	defaultCacheTTL            = "24h"

	defaultLLMProvider  = "ollama"
	defaultLLMModel     = "llama3.2"
	defaultLLMMaxTokens = 1024

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "ragline"
	defaultStorageProvider  = "sqlite"
	defaultEventsTopic      = "ragline.documents"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultIngestWorkers   = 3
	defaultIngestQueueSize = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK: defaultTopK,
		},
		Calls: CallsConfig{
			Timeout:        defaultCallTimeout,
			MaxAttempts:    defaultMaxAttempts,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     defaultMaxBackoff,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		EmbeddingCache: EmbeddingCacheConfig{
			TTL: defaultCacheTTL,
		},
		LLM: LLMConfig{
			Provider:  defaultLLMProvider,
			Target:    defaultOllamaTarget,
			Model:     defaultLLMModel,
			MaxTokens: defaultLLMMaxTokens,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Ingest: IngestConfig{
			Workers:   defaultIngestWorkers,
			QueueSize: defaultIngestQueueSize,
		},
	}
}
