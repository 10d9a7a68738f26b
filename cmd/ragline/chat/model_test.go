package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	tea "charm.land/bubbletea/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragline/pkg/rag"
	"github.com/papercomputeco/ragline/pkg/vector"
)

type fakeAsker struct {
	mu        sync.Mutex
	questions []string
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, question string, _ ...rag.AskOption) (*rag.Answer, error) {
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &rag.Answer{
		Question: question,
		Text:     "Refunds take five days.",
		Retrieval: []vector.QueryResult{{
			Record: vector.Record{ID: "c0", DocumentID: "doc-1", Text: "Refunds are issued within five days.",
				Metadata: map[string]string{"title": "Refund policy"}},
			Score: 0.91,
		}},
	}, nil
}

var (
	enter = tea.KeyPressMsg{Code: tea.KeyEnter}
	esc   = tea.KeyPressMsg{Code: tea.KeyEscape}
	ctrlC = tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
)

var _ = Describe("model", func() {
	var (
		asker *fakeAsker
		m     model
	)

	send := func(msg tea.Msg) tea.Cmd {
		next, cmd := m.Update(msg)
		m = next.(model)
		return cmd
	}

	typeText := func(text string) tea.Cmd {
		m.input.SetValue(text)
		return send(enter)
	}

	BeforeEach(func() {
		asker = &fakeAsker{}
		m = newModel(context.Background(), asker, 3, "llama3.2")
		m.render = func(text string, _ int) string { return text }
		send(tea.WindowSizeMsg{Width: 100, Height: 30})
	})

	It("sizes the transcript to the window", func() {
		Expect(m.viewport.Width()).To(Equal(100))
		Expect(m.viewport.Height()).To(Equal(30 - chrome))
	})

	It("asks the question on enter and shows it as pending", func() {
		cmd := typeText("  How long do refunds take?  ")
		Expect(cmd).NotTo(BeNil())
		Expect(m.waiting).To(BeTrue())
		Expect(m.input.Value()).To(BeEmpty())
		Expect(m.transcript()).To(ContainSubstring("How long do refunds take?"))

		msg := m.ask("How long do refunds take?")()
		send(msg)

		Expect(asker.questions).To(Equal([]string{"How long do refunds take?"}))
		Expect(m.waiting).To(BeFalse())
		Expect(m.turns).To(HaveLen(1))
		Expect(m.transcript()).To(ContainSubstring("Refunds take five days."))
		Expect(m.transcript()).To(ContainSubstring("1 chunks"))
	})

	It("ignores enter while an answer is pending", func() {
		typeText("first")
		Expect(typeText("second")).To(BeNil())
		Expect(m.pending).To(Equal("first"))
	})

	It("ignores blank input", func() {
		Expect(typeText("   ")).To(BeNil())
		Expect(m.waiting).To(BeFalse())
	})

	It("shows a failed answer and accepts the next question", func() {
		asker.err = errors.New("model offline")
		typeText("anything")
		send(m.ask("anything")())

		Expect(m.transcript()).To(ContainSubstring("model offline"))
		Expect(m.waiting).To(BeFalse())
		Expect(typeText("again")).NotTo(BeNil())
	})

	It("toggles sources under each answer", func() {
		typeText("refunds?")
		send(m.ask("refunds?")())
		Expect(m.transcript()).NotTo(ContainSubstring("Refund policy"))

		Expect(typeText("/sources")).To(BeNil())
		Expect(m.showSources).To(BeTrue())
		Expect(m.transcript()).To(ContainSubstring("Refund policy"))
	})

	It("clears the transcript", func() {
		typeText("refunds?")
		send(m.ask("refunds?")())
		typeText("/clear")
		Expect(m.turns).To(BeEmpty())
		Expect(m.transcript()).To(BeEmpty())
	})

	DescribeTable("quits",
		func(msg func() tea.Cmd) {
			cmd := msg()
			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(tea.QuitMsg{}))
		},
		Entry("on esc", func() tea.Cmd { return send(esc) }),
		Entry("on ctrl+c", func() tea.Cmd { return send(ctrlC) }),
		Entry("on /exit", func() tea.Cmd { return typeText("/exit") }),
	)

	It("renders the model name and a thinking status", func() {
		Expect(m.View().Content).To(ContainSubstring("llama3.2"))
		typeText("slow question")
		Expect(m.View().Content).To(ContainSubstring("Thinking"))
	})
})

var _ = Describe("repl", func() {
	It("answers one question per line until /exit", func() {
		asker := &fakeAsker{}
		out := &bytes.Buffer{}
		c := &chatCommander{
			in:  strings.NewReader("first question\n\n/sources\nsecond question\n/exit\nnever asked\n"),
			out: out,
		}

		Expect(c.repl(context.Background(), asker, 4)).To(Succeed())
		Expect(asker.questions).To(Equal([]string{"first question", "second question"}))
		Expect(strings.Count(out.String(), "Refunds take five days.")).To(Equal(2))
		Expect(strings.Count(out.String(), "Refund policy")).To(Equal(1))
	})

	It("reports a failed answer and keeps reading", func() {
		asker := &fakeAsker{err: errors.New("boom")}
		out := &bytes.Buffer{}
		c := &chatCommander{in: strings.NewReader("q1\nq2\n"), out: out}

		Expect(c.repl(context.Background(), asker, 4)).To(Succeed())
		Expect(asker.questions).To(HaveLen(2))
		Expect(strings.Count(out.String(), "boom")).To(Equal(2))
	})
})
