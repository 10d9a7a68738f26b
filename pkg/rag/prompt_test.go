package rag_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/rag"
	"github.com/papercomputeco/ragline/pkg/vector"
)

var _ = Describe("BuildPrompt", func() {
	results := []vector.QueryResult{
		{Record: vector.Record{Text: "The cat sat."}, Score: 0.9},
		{Record: vector.Record{Text: "sat. The dog"}, Score: 0.5},
	}

	It("joins chunk texts with a blank line in the given order", func() {
		prompt := rag.BuildPrompt("Q={question}\nC={context}", "What did the cat do?", results)
		Expect(prompt).To(Equal("Q=What did the cat do?\nC=The cat sat.\n\nsat. The dog"))
	})

	It("fills the default template", func() {
		prompt := rag.BuildPrompt(rag.DefaultPromptTemplate, "Why?", results)
		Expect(prompt).To(HavePrefix("You are an assistant for question-answering tasks."))
		Expect(prompt).To(ContainSubstring("Question: Why?\n"))
		Expect(prompt).To(ContainSubstring("Context: The cat sat.\n\nsat. The dog\n"))
		Expect(prompt).To(HaveSuffix("Answer:"))
	})

	It("leaves the context empty when nothing was retrieved", func() {
		Expect(rag.BuildPrompt("[{context}]", "q", nil)).To(Equal("[]"))
	})

	It("does not expand placeholders inside the question", func() {
		Expect(rag.BuildPrompt("{question}|{context}", "{context}", results[:1])).To(Equal("{context}|The cat sat."))
	})
})
