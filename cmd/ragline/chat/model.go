package chatcmder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	apisearch "github.com/papercomputeco/ragline/api/search"
	searchcmder "github.com/papercomputeco/ragline/cmd/ragline/search"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/rag"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	userPrompt      = userStyle.Render("you> ")
	assistantPrompt = assistantStyle.Render("assistant> ")
)

// chrome is the number of lines outside the transcript: title, status and input.
const chrome = 3

type turn struct {
	question string
	answer   *rag.Answer
	err      error
	elapsed  time.Duration
}

type answerMsg struct {
	turn turn
}

type model struct {
	ctx   context.Context
	asker asker
	topK  int
	llm   string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns       []turn
	pending     string
	waiting     bool
	showSources bool
	width       int
	height      int

	// render turns answer markdown into terminal text at the given width.
	render func(text string, width int) string
}

func newModel(ctx context.Context, a asker, topK int, llm string) model {
	input := textinput.New()
	input.Prompt = userPrompt
	input.Placeholder = "Ask a question"
	input.CharLimit = 2000
	input.Focus()

	return model{
		ctx:      ctx,
		asker:    a,
		topK:     topK,
		llm:      llm,
		input:    input,
		viewport: viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(userStyle)),
		width:    80,
		height:   20 + chrome,
		render:   renderMarkdown,
	}
}

func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(msg.Height-chrome, 1))
		m.input.SetWidth(max(msg.Width-lipgloss.Width(userPrompt)-1, 10))
		m.refresh()
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.waiting = false
		m.pending = ""
		m.turns = append(m.turns, msg.turn)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the enter key: a session command or a new question.
func (m model) submit() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}

	question := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch question {
	case "":
		return m, nil
	case "/exit", "/quit":
		return m, tea.Quit
	case "/sources":
		m.showSources = !m.showSources
		m.refresh()
		return m, nil
	case "/clear":
		m.turns = nil
		m.refresh()
		return m, nil
	}

	m.waiting = true
	m.pending = question
	m.refresh()
	return m, tea.Batch(m.ask(question), m.spinner.Tick)
}

// ask runs one question through the asker off the UI goroutine.
func (m model) ask(question string) tea.Cmd {
	a, ctx, topK := m.asker, m.ctx, m.topK
	return func() tea.Msg {
		start := time.Now()
		answer, err := a.Ask(ctx, question, rag.WithTopK(topK))
		return answerMsg{turn: turn{
			question: question,
			answer:   answer,
			err:      err,
			elapsed:  time.Since(start),
		}}
	}
}

func (m *model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

// transcript renders every finished turn plus the pending question.
func (m model) transcript() string {
	var b strings.Builder
	for _, t := range m.turns {
		fmt.Fprintf(&b, "%s%s\n\n", userPrompt, t.question)
		if t.err != nil {
			fmt.Fprintf(&b, "  %s %v\n\n", cliui.FailMark, t.err)
			continue
		}

		b.WriteString(m.render(t.answer.Text, m.width))
		fmt.Fprintf(&b, "\n%s\n\n", cliui.DimStyle.Render(
			fmt.Sprintf("%d chunks · %s", len(t.answer.Retrieval), cliui.FormatDuration(t.elapsed))))

		if m.showSources && len(t.answer.Retrieval) > 0 {
			searchcmder.PrintResults(&b, apisearch.NewOutput(t.answer.Question, t.answer.Retrieval).Results)
		}
	}
	if m.pending != "" {
		fmt.Fprintf(&b, "%s%s\n", userPrompt, m.pending)
	}
	return b.String()
}

func (m model) View() tea.View {
	status := cliui.DimStyle.Render("enter to ask · /sources · /clear · esc to quit")
	if m.waiting {
		status = m.spinner.View() + " " + cliui.StepStyle.Render("Thinking")
	}

	title := titleStyle.Render("ragline chat")
	if m.llm != "" {
		title += " " + cliui.NameStyle.Render(m.llm)
	}
	title += " " + cliui.DimStyle.Render(sourcesStatus(m.showSources))

	v := tea.NewView(strings.Join([]string{
		title,
		m.viewport.View(),
		status,
		m.input.View(),
	}, "\n"))
	v.AltScreen = true
	return v
}
