// Package askcmder provides the ask command for answering a question from
// the indexed documents.
package askcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/api/client"
	apisearch "github.com/papercomputeco/ragline/api/search"
	searchcmder "github.com/papercomputeco/ragline/cmd/ragline/search"
	"github.com/papercomputeco/ragline/cmd/ragline/stack"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/rag"
)

type askCommander struct {
	question string
	remote   bool
	sources  bool
	raw      bool
	json     bool

	out io.Writer
}

var askFlags = []string{
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

const askLongDesc string = `Answer a question from the indexed documents.

The question is embedded, the nearest chunks are retrieved and the language
model answers from them. The answer is rendered as markdown on a terminal and
printed as plain text otherwise.

Examples:
  ragline ask "How long do refunds take?"
  ragline ask "Who approves travel?" --top-k 8 --sources
  ragline ask "Who approves travel?" --llm-provider openai --llm-model gpt-4o-mini
  ragline ask "Who approves travel?" --remote --json`

const askShortDesc string = "Answer a question from indexed documents"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = strings.Join(args, " ")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.remote, "remote", "r", false, "Ask through a running API server")
	cmd.Flags().BoolVarP(&cmder.sources, "sources", "s", false, "List the retrieved chunks after the answer")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Output the answer and retrieval as JSON")
	config.AddFlags(cmd, config.Flags, askFlags...)

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command) error {
	cfg, configDir, err := stack.Load(cmd, askFlags...)
	if err != nil {
		return err
	}

	var answer *rag.Answer
	if c.remote {
		api, err := client.New(cfg.Client.APITarget)
		if err != nil {
			return err
		}
		answer, err = api.Ask(cmd.Context(), c.question, cfg.Retrieval.TopK)
		if err != nil {
			return err
		}
	} else {
		s, err := stack.Build(cmd.Context(), cfg, configDir, stack.NewLogger(cmd), stack.Options{Answer: true})
		if err != nil {
			return err
		}
		defer s.Close()

		err = cliui.Step(cmd.ErrOrStderr(), "Thinking", func() error {
			answer, err = s.Orchestrator.Ask(cmd.Context(), c.question)
			return err
		})
		if err != nil {
			return err
		}
	}

	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	text := answer.Text
	if !c.raw && cliui.IsTerminal(c.out) {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))

	if c.sources && len(answer.Retrieval) > 0 {
		fmt.Fprintf(c.out, "\n%s\n\n", cliui.HeaderStyle.Render("Sources"))
		searchcmder.PrintResults(c.out, apisearch.NewOutput(answer.Question, answer.Retrieval).Results)
	}
	return nil
}
