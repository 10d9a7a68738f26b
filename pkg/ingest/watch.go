package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/ragline/pkg/storage"
	"github.com/papercomputeco/ragline/pkg/worker"
)

// DefaultDebounce is how long a watched file must stay quiet before it is
// re-ingested. Editors commonly emit several writes per save.
const DefaultDebounce = 250 * time.Millisecond

// ChangeType is what happened to a watched file.
type ChangeType int

const (
	// ChangeUpserted means the file was created or written.
	ChangeUpserted ChangeType = iota

	// ChangeRemoved means the file was removed or renamed away.
	ChangeRemoved
)

func (c ChangeType) String() string {
	if c == ChangeRemoved {
		return "removed"
	}
	return "upserted"
}

// Change is a settled change to one watched file and its outcome.
type Change struct {
	Type       ChangeType
	Path       string
	DocumentID string
	Err        error
}

// Watcher keeps the index in sync with files below a set of directories.
// Written files are re-ingested and removed files are deleted from the index,
// both through the pipeline's worker pool.
type Watcher struct {
	pipeline *Pipeline
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	// paths serializes sync jobs per file.
	paths keyedMutex

	// OnChange, when set, receives every settled change. It may be called
	// from worker goroutines.
	OnChange func(Change)
}

// NewWatcher watches roots and every visible directory below them.
func NewWatcher(p *Pipeline, roots []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		pipeline: p,
		fs:       fw,
		debounce: debounce,
		logger:   p.logger.With("component", "watcher"),
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}

	return w, nil
}

// addTree watches dir and its visible subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// classify maps a raw event to a change type. It returns false for events
// that do not affect the index: chmods, directories and unsupported files.
func classify(event fsnotify.Event) (ChangeType, bool) {
	if !IsSupportedFile(event.Name) {
		return 0, false
	}

	switch {
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return ChangeRemoved, true
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return 0, false
		}
		return ChangeUpserted, true
	default:
		return 0, false
	}
}

// Run processes events until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("could not watch new directory", "path", event.Name, "err", err)
					}
					continue
				}
			}
			if _, ok := classify(event); ok {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher error: %w", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				w.settle(ctx, path)
			}
		}
	}
}

// settle schedules path to be brought in line with the file system on the
// pipeline's worker pool. Jobs for one path run one at a time and read the
// file when they run, so a removal can never be overtaken by an earlier write.
func (w *Watcher) settle(ctx context.Context, path string) {
	ctx = context.WithoutCancel(ctx)
	queued := w.pipeline.pool.Enqueue(worker.Job{
		ID: path,
		Run: func() error {
			unlock := w.paths.lock(path)
			defer unlock()
			w.sync(ctx, path)
			return nil
		},
	})
	if !queued {
		w.report(Change{Type: ChangeUpserted, Path: path, Err: errors.New("ingest queue full")})
	}
}

// sync applies the current state of path to the index.
func (w *Watcher) sync(ctx context.Context, path string) {
	id, err := FileDocumentID(path)
	if err != nil {
		w.report(Change{Type: ChangeUpserted, Path: path, Err: err})
		return
	}

	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		err := w.pipeline.Delete(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return
		}
		w.report(Change{Type: ChangeRemoved, Path: path, DocumentID: id, Err: err})
		return
	}

	doc, err := LoadFile(path)
	if err == nil {
		_, err = w.pipeline.Ingest(ctx, doc)
	}
	w.report(Change{Type: ChangeUpserted, Path: path, DocumentID: id, Err: err})
}

func (w *Watcher) report(c Change) {
	if c.Err != nil {
		w.logger.Warn("sync failed", "path", c.Path, "change", c.Type.String(), "err", c.Err)
	} else {
		w.logger.Info("synced file", "path", c.Path, "change", c.Type.String(), "document_id", c.DocumentID)
	}
	if w.OnChange != nil {
		w.OnChange(c)
	}
}
