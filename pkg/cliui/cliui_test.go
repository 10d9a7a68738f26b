package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("writes a single result line for non-terminal writers", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "Indexing notes.md", func() error { return nil })
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("Indexing notes.md"))
			Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})

		It("returns the function's error and marks failure", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")
			Expect(cliui.Step(&buf, "Indexing", func() error { return boom })).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		})
	})

	Describe("FormatDuration", func() {
		It("uses milliseconds below one second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses tenths of seconds above one second", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Preview", func() {
		It("flattens whitespace", func() {
			Expect(cliui.Preview("a\n\nb   c", 80)).To(Equal("a b c"))
		})

		It("truncates to the given width", func() {
			Expect(cliui.Preview("abcdefghij", 5)).To(Equal("abcd…"))
		})
	})

	Describe("Mask", func() {
		It("keeps the last four characters", func() {
			Expect(cliui.Mask("sk-abcdef1234")).To(Equal("*********1234"))
		})

		It("masks short secrets entirely", func() {
			Expect(cliui.Mask("abc")).To(Equal("***"))
		})
	})

	It("never reports a buffer as a terminal", func() {
		Expect(cliui.IsTerminal(&bytes.Buffer{})).To(BeFalse())
		Expect(cliui.ColorEnabled(&bytes.Buffer{})).To(BeFalse())
	})
})
