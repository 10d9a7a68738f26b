package rag

import (
	"strings"

	"github.com/papercomputeco/ragline/pkg/vector"
)

// DefaultPromptTemplate grounds the model in the retrieved context and asks
// for a short answer.
const DefaultPromptTemplate = `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.
Question: {question}
Context: {context}
Answer:`

const (
	questionPlaceholder = "{question}"
	contextPlaceholder  = "{context}"
)

// contextSeparator joins chunk texts in the prompt.
const contextSeparator = "\n\n"

// BuildPrompt fills template with question and the texts of results, joined
// in the given order. Placeholders are replaced in a single pass, so text
// inside the question or context is never substituted again.
func BuildPrompt(template, question string, results []vector.QueryResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.NewReplacer(
		questionPlaceholder, question,
		contextPlaceholder, strings.Join(texts, contextSeparator),
	).Replace(template)
}

func validTemplate(template string) bool {
	return strings.Contains(template, questionPlaceholder) && strings.Contains(template, contextPlaceholder)
}
