package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --top-k
// on both "ragline ask" and "ragline search").
type Flag struct {
	// Name is the long flag name (e.g. "top-k").
	Name string

	// Shorthand is the one-letter short flag (e.g. "k"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "retrieval.top_k").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string

	// Kind selects the flag's value type. The zero value is a string flag.
	Kind FlagKind
}

// FlagKind is the value type of a registered flag.
type FlagKind int

const (
	StringFlag FlagKind = iota
	IntFlag
	UintFlag
)

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagAPITarget       = "api-target"
	FlagTopK            = "top-k"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagLLMProvider     = "llm-provider"
	FlagLLMTarget       = "llm-target"
	FlagLLMModel        = "llm-model"
	FlagStorageProv     = "storage-provider"
	FlagStorageTgt      = "storage-target"
	FlagWorkers         = "workers"
)

// Flags is the registry shared by every ragline command.
var Flags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", ViperKey: "client.api_target", Description: "ragline API server URL"},
	FlagTopK:            {Name: "top-k", Shorthand: "k", ViperKey: "retrieval.top_k", Description: "Number of chunks to retrieve", Kind: IntFlag},
	FlagChunkSize:       {Name: "chunk-size", ViperKey: "chunking.size", Description: "Chunk size in characters", Kind: IntFlag},
	FlagChunkOverlap:    {Name: "chunk-overlap", ViperKey: "chunking.overlap", Description: "Characters shared by consecutive chunks", Kind: IntFlag},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (memory, sqlite, chroma, qdrant, pgvector)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (file path, URL or connection string)"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama, openai, bedrock)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector dimensions", Kind: UintFlag},
	FlagLLMProvider:     {Name: "llm-provider", ViperKey: "llm.provider", Description: "Language model provider (ollama, openai, anthropic, bedrock)"},
	FlagLLMTarget:       {Name: "llm-target", ViperKey: "llm.target", Description: "Language model provider URL"},
	FlagLLMModel:        {Name: "llm-model", Shorthand: "m", ViperKey: "llm.model", Description: "Language model name"},
	FlagStorageProv:     {Name: "storage-provider", ViperKey: "storage.provider", Description: "Document registry provider (memory, sqlite, postgres)"},
	FlagStorageTgt:      {Name: "storage-target", ViperKey: "storage.target", Description: "Document registry target (file path or connection string)"},
	FlagWorkers:         {Name: "workers", Shorthand: "w", ViperKey: "ingest.workers", Description: "Number of concurrent ingestion workers", Kind: UintFlag},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFlags registers the given flags on cmd without binding them to a
// variable. Their values are read back through viper after
// BindRegisteredFlags.
func AddFlags(cmd *cobra.Command, fs FlagSet, registryKeys ...string) {
	for _, key := range registryKeys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		switch def.Kind {
		case IntFlag:
			cmd.Flags().IntP(def.Name, def.Shorthand, defaultInt(def.ViperKey), def.Description)
		case UintFlag:
			cmd.Flags().UintP(def.Name, def.Shorthand, defaultUint(def.ViperKey), def.Description)
		default:
			cmd.Flags().StringP(def.Name, def.Shorthand, defaultString(def.ViperKey), def.Description)
		}
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
