// Package bedrock implements llm.Generator for Anthropic Claude models served
// by Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/papercomputeco/ragline/pkg/llm"
	"github.com/papercomputeco/ragline/pkg/llm/anthropic"
)

const anthropicVersion = "bedrock-2023-05-31"

// Invoker is the Bedrock runtime call the generator needs.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      *float64        `json:"temperature,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator invokes a Claude model ID on Bedrock.
type Generator struct {
	client Invoker
	opts   llm.Options
}

// New loads the default AWS configuration for region and creates a runtime
// client unless one is supplied.
func New(ctx context.Context, region string, client Invoker, opts llm.Options) (*Generator, error) {
	if opts.Model == "" {
		return nil, errors.New("bedrock model ID is required")
	}
	if client == nil {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client = bedrockruntime.NewFromConfig(cfg)
	}
	return &Generator{client: client, opts: opts}, nil
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        g.opts.Tokens(),
		Temperature:      g.opts.Temperature,
		Messages:         []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.opts.Model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke model: %w", err)
	}

	var resp anthropic.Response
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return resp.Text()
}

var _ llm.Generator = (*Generator)(nil)
