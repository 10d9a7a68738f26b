// Package ragerr defines the error kinds reported by ingestion and question
// answering, and the Error type that carries them.
package ragerr

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidConfiguration is returned for unusable chunking parameters or
	// missing required settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyDocument is returned when a document has no text to ingest.
	ErrEmptyDocument = errors.New("empty document")

	// ErrEmptyQuestion is returned when a question has no text.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrEmbeddingFailure is returned when the embedder fails or times out.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrIndexWriteFailure is returned when chunks could not be written to the
	// vector index. Partial writes have been rolled back.
	ErrIndexWriteFailure = errors.New("index write failure")

	// ErrIndexUnavailable is returned when the vector index cannot be searched.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrGenerationFailure is returned when the language model fails, times out
	// or produces no text.
	ErrGenerationFailure = errors.New("generation failure")
)

// Stage names the step of a pipeline where an error occurred.
type Stage string

const (
	StageValidate Stage = "validate"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StageIndex    Stage = "index"
	StageRegister Stage = "register"
	StageRetrieve Stage = "retrieve"
	StageGenerate Stage = "generate"
)

// Error is the error type returned by the ingest and rag packages.
// errors.Is matches both Kind and the underlying cause.
type Error struct {
	Kind       error
	Stage      Stage
	DocumentID string
	Err        error
}

// New builds an *Error.
func New(kind error, stage Stage, documentID string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, DocumentID: documentID, Err: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Stage))
	if e.DocumentID != "" {
		b.WriteString(" document ")
		b.WriteString(e.DocumentID)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind of err, or nil if err carries none.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, kind := range []error{
		ErrInvalidConfiguration,
		ErrEmptyDocument,
		ErrEmptyQuestion,
		ErrEmbeddingFailure,
		ErrIndexWriteFailure,
		ErrIndexUnavailable,
		ErrGenerationFailure,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Invalid returns an ErrInvalidConfiguration error at the validate stage.
func Invalid(reason string) *Error {
	return New(ErrInvalidConfiguration, StageValidate, "", errors.New(reason))
}
