// Package ingestcmder provides the ingest command for indexing files.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragline/cmd/ragline/stack"
	"github.com/papercomputeco/ragline/pkg/cliui"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/ingest"
)

type ingestCommander struct {
	paths    []string
	watch    bool
	debounce time.Duration

	out io.Writer
}

var ingestFlags = []string{
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagWorkers,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagStorageProv,
	config.FlagStorageTgt,
}

const ingestLongDesc string = `Ingest text and markdown files into the vector index.

Each file becomes one document: its title is the file name and its category
is the name of the directory holding it. Directories are walked recursively,
skipping hidden entries. Ingesting a file again replaces its earlier chunks.

With --watch, ragline keeps running after the initial ingest and re-ingests
files as they change below the given directories. Removed files are deleted
from the index.

Examples:
  ragline ingest notes/
  ragline ingest handbook.md faq.txt
  ragline ingest docs/ --chunk-size 500 --chunk-overlap 50
  ragline ingest docs/ --watch`

const ingestShortDesc string = "Ingest files into the vector index"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Keep running and re-ingest files as they change")
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", ingest.DefaultDebounce, "Quiet period before a changed file is re-ingested")
	config.AddFlags(cmd, config.Flags, ingestFlags...)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command) error {
	var roots []string
	if c.watch {
		roots = watchRoots(c.paths)
		if len(roots) == 0 {
			return errors.New("--watch needs at least one directory")
		}
	}

	cfg, configDir, err := stack.Load(cmd, ingestFlags...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := stack.NewLogger(cmd)
	s, err := stack.Build(ctx, cfg, configDir, log, stack.Options{Ingest: true})
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := ingest.LoadPaths(c.paths)
	if err != nil {
		return err
	}

	if err := c.ingestAll(ctx, s.Pipeline, docs); err != nil && !c.watch {
		return err
	}

	if !c.watch {
		return nil
	}
	return c.watchPaths(ctx, s.Pipeline, roots)
}

func (c *ingestCommander) ingestAll(ctx context.Context, p *ingest.Pipeline, docs []ingest.Document) error {
	if len(docs) == 0 {
		fmt.Fprintln(c.out, "No supported files found.")
		return nil
	}

	start := time.Now()
	var results []ingest.Result
	_ = cliui.Step(c.out, fmt.Sprintf("Ingesting %d documents", len(docs)), func() error {
		results = p.IngestAll(ctx, docs)
		return nil
	})

	failed := 0
	for i, r := range results {
		doc := docs[i]
		if r.Err != nil {
			failed++
			fmt.Fprintf(c.out, "  %s %s  %s\n", cliui.FailMark, doc.Source, cliui.DimStyle.Render(r.Err.Error()))
			continue
		}

		detail := r.DocumentID
		if rec, err := p.Get(ctx, r.DocumentID); err == nil {
			detail = fmt.Sprintf("%d chunks", rec.ChunkCount)
		}
		fmt.Fprintf(c.out, "  %s %s  %s\n", cliui.SuccessMark, doc.Source, cliui.DimStyle.Render(detail))
	}

	fmt.Fprintf(c.out, "\n  %s\n",
		cliui.DimStyle.Render(fmt.Sprintf("%d ingested, %d failed in %s", len(docs)-failed, failed, cliui.FormatDuration(time.Since(start)))))

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to ingest", failed, len(docs))
	}
	return nil
}

// watchRoots returns the directories among paths.
func watchRoots(paths []string) []string {
	var roots []string
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			roots = append(roots, path)
		}
	}
	return roots
}

func (c *ingestCommander) watchPaths(ctx context.Context, p *ingest.Pipeline, roots []string) error {
	w, err := ingest.NewWatcher(p, roots, c.debounce)
	if err != nil {
		return err
	}
	w.OnChange = func(change ingest.Change) {
		if change.Err != nil {
			fmt.Fprintf(c.out, "  %s %s %s  %s\n", cliui.FailMark, change.Type, change.Path, cliui.DimStyle.Render(change.Err.Error()))
			return
		}
		fmt.Fprintf(c.out, "  %s %s %s\n", cliui.SuccessMark, change.Type, change.Path)
	}

	fmt.Fprintf(c.out, "\n  %s\n", cliui.DimStyle.Render("Watching for changes, press Ctrl+C to stop"))
	return w.Run(ctx)
}
