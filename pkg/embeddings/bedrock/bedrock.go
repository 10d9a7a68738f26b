// Package bedrock implements embeddings.Embedder with Amazon Titan text
// embedding models on Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/papercomputeco/ragline/pkg/embeddings"
)

const DefaultEmbeddingModel = "amazon.titan-embed-text-v2:0"

// Invoker is the Bedrock runtime call the embedder needs.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// EmbedderConfig holds configuration for the Bedrock embedder.
type EmbedderConfig struct {
	// Region is the AWS region. Credentials come from the default chain.
	Region string

	Model string

	// Dimensions selects the Titan v2 output size (256, 512 or 1024).
	Dimensions uint

	// Client overrides the runtime client built from Region.
	Client Invoker
}

// Embedder calls InvokeModel with Titan's request format.
type Embedder struct {
	client     Invoker
	model      string
	dimensions uint
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions uint   `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewEmbedder loads the default AWS configuration for the region and creates
// a runtime client unless one is supplied.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	client := cfg.Client
	if client == nil {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client = bedrockruntime.NewFromConfig(awsCfg)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{client: client, model: model, dimensions: cfg.Dimensions}, nil
}

// Model returns the embedding model ID.
func (e *Embedder) Model() string {
	return e.model
}

// Embed converts text into a normalized vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: e.dimensions, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %w", embeddings.ErrEmbedding, err)
	}

	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoking model: %w", embeddings.ErrEmbedding, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", embeddings.ErrEmbedding, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", embeddings.ErrEmbedding)
	}

	return resp.Embedding, nil
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
