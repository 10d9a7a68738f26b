// Package rag answers questions from indexed documents: it retrieves the
// chunks closest to the question and has a language model answer from them.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/ragline/pkg/embeddings"
	"github.com/papercomputeco/ragline/pkg/llm"
	"github.com/papercomputeco/ragline/pkg/ragerr"
	"github.com/papercomputeco/ragline/pkg/retry"
	"github.com/papercomputeco/ragline/pkg/vector"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	// DefaultCallTimeout bounds each embedder, index and model call.
	DefaultCallTimeout = 60 * time.Second
)

// Stage is the state of one question's execution.
type Stage int

const (
	StageRetrieve Stage = iota
	StageGenerate
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageRetrieve:
		return "retrieve"
	case StageGenerate:
		return "generate"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Answer is a generated answer with the retrieval that grounded it.
type Answer struct {
	Question  string               `json:"question"`
	Text      string               `json:"answer"`
	Retrieval []vector.QueryResult `json:"retrieval"`
}

// Config configures an Orchestrator.
type Config struct {
	// Embedder must be the embedder used at ingestion.
	Embedder     embeddings.Embedder
	VectorDriver vector.Driver
	Generator    llm.Generator

	// TopK defaults to DefaultTopK.
	TopK int

	// PromptTemplate must contain {question} and {context}. Defaults to
	// DefaultPromptTemplate.
	PromptTemplate string

	// CallTimeout bounds every collaborator attempt. Defaults to
	// DefaultCallTimeout.
	CallTimeout time.Duration

	// Retry applies to every collaborator call. The zero value makes one attempt.
	Retry retry.Policy

	Logger *slog.Logger
}

// Orchestrator runs the retrieve and generate stages. It holds no per-question
// state and is safe for concurrent use.
type Orchestrator struct {
	embedder    embeddings.Embedder
	vectors     vector.Driver
	generator   llm.Generator
	topK        int
	template    string
	callTimeout time.Duration
	retry       retry.Policy
	logger      *slog.Logger
}

// New validates c and returns an Orchestrator.
func New(c Config) (*Orchestrator, error) {
	if c.Embedder == nil {
		return nil, ragerr.Invalid("an embedder is required")
	}
	if c.VectorDriver == nil {
		return nil, ragerr.Invalid("a vector driver is required")
	}
	if c.Generator == nil {
		return nil, ragerr.Invalid("a generator is required")
	}
	if c.TopK < 0 {
		return nil, ragerr.Invalid(fmt.Sprintf("top_k must be positive, got %d", c.TopK))
	}

	o := &Orchestrator{
		embedder:    c.Embedder,
		vectors:     c.VectorDriver,
		generator:   c.Generator,
		topK:        c.TopK,
		template:    c.PromptTemplate,
		callTimeout: c.CallTimeout,
		retry:       c.Retry,
		logger:      c.Logger,
	}
	if o.topK == 0 {
		o.topK = DefaultTopK
	}
	if o.template == "" {
		o.template = DefaultPromptTemplate
	}
	if !validTemplate(o.template) {
		return nil, ragerr.Invalid("prompt template must contain {question} and {context}")
	}
	if o.callTimeout == 0 {
		o.callTimeout = DefaultCallTimeout
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o, nil
}

// AskOption adjusts a single Ask or Retrieve call.
type AskOption func(*askOptions)

type askOptions struct {
	topK int
}

// WithTopK overrides the configured k for one call. Values below 1 are ignored.
func WithTopK(k int) AskOption {
	return func(o *askOptions) {
		if k > 0 {
			o.topK = k
		}
	}
}

func (o *Orchestrator) options(opts []AskOption) askOptions {
	ao := askOptions{topK: o.topK}
	for _, opt := range opts {
		opt(&ao)
	}
	return ao
}

// Ask retrieves context for question and generates an answer from it.
func (o *Orchestrator) Ask(ctx context.Context, question string, opts ...AskOption) (*Answer, error) {
	started := time.Now()
	answer := &Answer{Question: question}

	for stage := StageRetrieve; stage != StageDone; {
		switch stage {
		case StageRetrieve:
			results, err := o.Retrieve(ctx, question, opts...)
			if err != nil {
				return nil, err
			}
			answer.Retrieval = results
			stage = StageGenerate

		case StageGenerate:
			text, err := o.Generate(ctx, question, answer.Retrieval)
			if err != nil {
				return nil, err
			}
			answer.Text = text
			stage = StageDone
		}
	}

	o.logger.Info("answered question",
		"chunks", len(answer.Retrieval),
		"duration", time.Since(started),
	)
	return answer, nil
}

// Retrieve embeds question and returns the k most similar chunks, highest
// score first. An empty index yields an empty result, not an error.
func (o *Orchestrator) Retrieve(ctx context.Context, question string, opts ...AskOption) ([]vector.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ragerr.New(ragerr.ErrEmptyQuestion, ragerr.StageRetrieve, "", nil)
	}
	ao := o.options(opts)

	query, err := retry.Value(ctx, o.retry, o.callTimeout, func(ctx context.Context) ([]float32, error) {
		return o.embedder.Embed(ctx, question)
	})
	if err == nil && len(query) == 0 {
		err = errors.New("empty embedding")
	}
	if err != nil {
		o.logger.Error("question embedding failed", "stage", StageRetrieve, "err", err)
		return nil, ragerr.New(ragerr.ErrEmbeddingFailure, ragerr.StageRetrieve, "", err)
	}

	results, err := retry.Value(ctx, o.retry, o.callTimeout, func(ctx context.Context) ([]vector.QueryResult, error) {
		return o.vectors.Search(ctx, query, ao.topK)
	})
	if err != nil {
		o.logger.Error("index search failed", "stage", StageRetrieve, "err", err)
		return nil, ragerr.New(ragerr.ErrIndexUnavailable, ragerr.StageRetrieve, "", err)
	}

	results = vector.Top(results, ao.topK)
	o.logger.Debug("retrieved chunks", "k", ao.topK, "results", len(results))
	return results, nil
}

// Generate fills the prompt template with question and the chunk texts of
// results, in order, and returns the model's answer as produced.
func (o *Orchestrator) Generate(ctx context.Context, question string, results []vector.QueryResult) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ragerr.New(ragerr.ErrEmptyQuestion, ragerr.StageGenerate, "", nil)
	}

	prompt := BuildPrompt(o.template, question, results)

	text, err := retry.Value(ctx, o.retry, o.callTimeout, func(ctx context.Context) (string, error) {
		return o.generator.Generate(ctx, prompt)
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrNoContent
	}
	if err != nil {
		o.logger.Error("generation failed", "stage", StageGenerate, "err", err)
		return "", ragerr.New(ragerr.ErrGenerationFailure, ragerr.StageGenerate, "", err)
	}

	return text, nil
}

// TopK returns the configured default k.
func (o *Orchestrator) TopK() int {
	return o.topK
}
