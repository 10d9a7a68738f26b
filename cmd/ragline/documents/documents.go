// Package documentscmder provides the documents command for listing and
// deleting ingested documents.
package documentscmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/cmd/ragline/stack"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/storage"
)

var documentsFlags = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagStorageProv,
	config.FlagStorageTgt,
}

const documentsLongDesc string = `List, inspect and delete ingested documents.

Deleting a document removes every chunk it contributed to the vector index
as well as its registry record.

Examples:
  ragline documents list
  ragline documents show 0b7c8a52-4f1e-5d5c-9a7e-3c1f0e2d9b41
  ragline documents delete 0b7c8a52-4f1e-5d5c-9a7e-3c1f0e2d9b41`

const documentsShortDesc string = "Manage ingested documents"

func NewDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   documentsShortDesc,
		Long:    documentsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func withStack(cmd *cobra.Command, fn func(s *stack.Stack) error) error {
	cfg, configDir, err := stack.Load(cmd, documentsFlags...)
	if err != nil {
		return err
	}

	s, err := stack.Build(cmd.Context(), cfg, configDir, stack.NewLogger(cmd), stack.Options{Ingest: true})
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStack(cmd, func(s *stack.Stack) error {
				docs, err := s.Pipeline.List(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					if docs == nil {
						docs = []*storage.Document{}
					}
					return writeJSON(out, docs)
				}

				if len(docs) == 0 {
					fmt.Fprintln(out, "No documents ingested.")
					return nil
				}

				fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("%d documents", len(docs))))
				for _, d := range docs {
					fmt.Fprintf(out, "  %s  %s  %s\n",
						cliui.KeyStyle.Render(d.ID),
						cliui.NameStyle.Render(d.Title),
						cliui.DimStyle.Render(fmt.Sprintf("%s · %d chunks", d.Category, d.ChunkCount)),
					)
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output documents as JSON")
	config.AddFlags(cmd, config.Flags, documentsFlags...)

	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document's registry record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, func(s *stack.Stack) error {
				doc, err := s.Pipeline.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
	config.AddFlags(cmd, config.Flags, documentsFlags...)

	return cmd
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete documents and their chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd, func(s *stack.Stack) error {
				out := cmd.OutOrStdout()

				var errs []error
				for _, id := range args {
					err := s.Pipeline.Delete(cmd.Context(), id)
					if err != nil {
						errs = append(errs, err)
						fmt.Fprintf(out, "  %s %s  %s\n", cliui.FailMark, id, cliui.DimStyle.Render(err.Error()))
						continue
					}
					fmt.Fprintf(out, "  %s Deleted %s\n", cliui.SuccessMark, id)
				}
				return errors.Join(errs...)
			})
		},
	}
	config.AddFlags(cmd, config.Flags, documentsFlags...)

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
