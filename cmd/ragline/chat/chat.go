// Package chatcmder provides the chat command for asking a series of
// questions against the indexed documents.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/ragline/api/client"
	apisearch "github.com/papercomputeco/ragline/api/search"
	searchcmder "github.com/papercomputeco/ragline/cmd/ragline/search"
	"github.com/papercomputeco/ragline/cmd/ragline/stack"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/rag"
)

// asker answers one question. *rag.Orchestrator satisfies it.
type asker interface {
	Ask(ctx context.Context, question string, opts ...rag.AskOption) (*rag.Answer, error)
}

// remoteAsker sends questions to a running API server.
type remoteAsker struct {
	api  *client.Client
	topK int
}

func (r remoteAsker) Ask(ctx context.Context, question string, _ ...rag.AskOption) (*rag.Answer, error) {
	return r.api.Ask(ctx, question, r.topK)
}

type chatCommander struct {
	remote  bool
	sources bool

	in  io.Reader
	out io.Writer
}

var chatFlags = []string{
	config.FlagTopK,
	config.FlagAPITarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
}

const chatLongDesc string = `Start an interactive question and answer session over the indexed documents.

Every question is answered independently: it is embedded, the nearest chunks
are retrieved and the language model answers from them. On a terminal the
session runs full screen; piped input is read one question per line.

Commands inside the session:
  /sources   toggle listing the retrieved chunks under each answer
  /clear     clear the transcript
  /exit      leave the session (also Esc or Ctrl+C)

Examples:
  ragline chat
  ragline chat --sources --top-k 6
  ragline chat --remote --api-target http://localhost:8081`

const chatShortDesc string = "Interactive question answering over indexed documents"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.remote, "remote", "r", false, "Ask through a running API server")
	cmd.Flags().BoolVarP(&cmder.sources, "sources", "s", false, "List the retrieved chunks under each answer")
	config.AddFlags(cmd, config.Flags, chatFlags...)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	cfg, configDir, err := stack.Load(cmd, chatFlags...)
	if err != nil {
		return err
	}

	var a asker
	if c.remote {
		api, err := client.New(cfg.Client.APITarget)
		if err != nil {
			return err
		}
		a = remoteAsker{api: api, topK: cfg.Retrieval.TopK}
	} else {
		s, err := stack.Build(cmd.Context(), cfg, configDir, stack.NewLogger(cmd), stack.Options{Answer: true})
		if err != nil {
			return err
		}
		defer s.Close()
		a = s.Orchestrator
	}

	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		m := newModel(cmd.Context(), a, cfg.Retrieval.TopK, cfg.LLM.Model)
		m.showSources = c.sources
		p := tea.NewProgram(m,
			tea.WithContext(cmd.Context()),
			tea.WithInput(c.in),
			tea.WithOutput(c.out),
		)
		_, err := p.Run()
		return err
	}

	return c.repl(cmd.Context(), a, cfg.Retrieval.TopK)
}

// repl answers one question per input line until EOF or /exit.
func (c *chatCommander) repl(ctx context.Context, a asker, topK int) error {
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "/exit", "/quit":
			fmt.Fprintln(c.out)
			return nil
		case "/sources":
			c.sources = !c.sources
			fmt.Fprintf(c.out, "%s\n", cliui.DimStyle.Render(sourcesStatus(c.sources)))
			continue
		case "/clear":
			continue
		}

		answer, err := a.Ask(ctx, question, rag.WithTopK(topK))
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Fprintf(c.out, "%s%s\n", assistantPrompt, strings.TrimSpace(answer.Text))
		if c.sources {
			fmt.Fprintln(c.out)
			searchcmder.PrintResults(c.out, apisearch.NewOutput(answer.Question, answer.Retrieval).Results)
		}
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Fprintln(c.out)
	return nil
}

func sourcesStatus(on bool) string {
	if on {
		return "sources shown"
	}
	return "sources hidden"
}
