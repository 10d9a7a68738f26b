// Package searchcmder provides the search command for semantic search over
// indexed chunks.
package searchcmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/api/client"
	apisearch "github.com/papercomputeco/ragline/api/search"
	"github.com/papercomputeco/ragline/cmd/ragline/stack"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
)

type searchCommander struct {
	query  string
	remote bool
	quiet  bool
	json   bool

	out io.Writer
}

var searchFlags = []string{
	config.FlagTopK,
	config.FlagAPITarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
}

const searchLongDesc string = `Search indexed chunks without generating an answer.

The query is embedded with the configured embedder and the nearest chunks are
printed best first. Use --remote to search through a running ragline API
server instead of opening the vector store directly.

Use --quiet to output only document IDs, one per line. This is useful for
piping into other commands like ragline documents delete.

Examples:
  ragline search "how are refunds handled"
  ragline search "onboarding checklist" --top-k 10
  ragline search "onboarding checklist" --remote --api-target http://localhost:8081
  ragline search "old pricing" --quiet | xargs ragline documents delete`

const searchShortDesc string = "Search indexed chunks"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVarP(&cmder.remote, "remote", "r", false, "Search through a running API server")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only document IDs, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Output results as JSON")
	config.AddFlags(cmd, config.Flags, searchFlags...)

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command) error {
	cfg, configDir, err := stack.Load(cmd, searchFlags...)
	if err != nil {
		return err
	}

	var output *apisearch.Output
	if c.remote {
		api, err := client.New(cfg.Client.APITarget)
		if err != nil {
			return err
		}
		output, err = api.Search(cmd.Context(), c.query, cfg.Retrieval.TopK)
		if err != nil {
			return err
		}
	} else {
		log := stack.NewLogger(cmd)
		s, err := stack.Build(cmd.Context(), cfg, configDir, log, stack.Options{})
		if err != nil {
			return err
		}
		defer s.Close()

		output, err = apisearch.Search(cmd.Context(), s.Orchestrator, c.query, cfg.Retrieval.TopK, log)
		if err != nil {
			return err
		}
	}

	switch {
	case c.json:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	case c.quiet:
		seen := make(map[string]bool)
		for _, r := range output.Results {
			if !seen[r.DocumentID] {
				seen[r.DocumentID] = true
				fmt.Fprintln(c.out, r.DocumentID)
			}
		}
		return nil
	}

	if output.Count == 0 {
		fmt.Fprintln(c.out, "No results found.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	PrintResults(c.out, output.Results)
	return nil
}

// PrintResults renders ranked results with their score, source document and
// a one-line preview.
func PrintResults(w io.Writer, results []apisearch.Result) {
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}

		fmt.Fprintf(w, "  %s  %s  %s %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.StepStyle.Render(fmt.Sprintf("score: %.4f", r.Score)),
			cliui.NameStyle.Render(title),
			cliui.DimStyle.Render(fmt.Sprintf("chunk %d", r.Index)),
		)
		if r.Category != "" {
			fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(r.Category))
		}
		fmt.Fprintf(w, "  %s\n\n", cliui.ValueStyle.Render(cliui.Preview(r.Text, 100)))
	}
}
