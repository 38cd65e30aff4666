// Package watcher keeps the index synchronised with a crawler output
// directory. The crawler drops one JSON file per page; the watcher
// ingests new and rewritten files as they appear.
package watcher

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/music-assist/backend/internal/core/ports/driving"
	"github.com/music-assist/backend/internal/logger"
)

// DefaultSettleDelay is how long the watcher waits after the last
// write event before reading a file, so partially written crawl files
// are not ingested mid-write.
const DefaultSettleDelay = 200 * time.Millisecond

// Watcher ingests crawl files from a directory as they are written.
type Watcher struct {
	dir         string
	ingestor    driving.IngestService
	settleDelay time.Duration
}

// Option configures the watcher.
type Option func(*Watcher)

// WithSettleDelay sets the quiet period before a changed file is read.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settleDelay = d
		}
	}
}

// New creates a watcher over the given crawl directory.
func New(dir string, ingestor driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		dir:         dir,
		ingestor:    ingestor,
		settleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps the directory once, then watches it until the context is
// cancelled. Per-file ingestion failures are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("crawl directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("crawl directory: %s is not a directory", w.dir)
	}

	// Catch up on files written while we were not watching
	docs, loadErrs := LoadDir(w.dir)
	for _, err := range loadErrs {
		logger.Warn("Skipping crawl file: %v", err)
	}
	if len(docs) > 0 {
		report, err := w.ingestor.IngestBatch(ctx, docs)
		if err != nil {
			return fmt.Errorf("initial sweep: %w", err)
		}
		logger.Info("Initial sweep: %d ingested, %d unchanged, %d failed",
			report.Ingested, report.Unchanged, report.Failed)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for crawl files", w.dir)

	// One pending timer per path collapses bursts of write events
	// into a single ingestion once the file settles.
	pending := make(map[string]*time.Timer)
	settled := make(chan string)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}

			path := event.Name
			if timer, ok := pending[path]; ok {
				timer.Reset(w.settleDelay)
				continue
			}
			pending[path] = time.AfterFunc(w.settleDelay, func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})

		case path := <-settled:
			delete(pending, path)
			w.ingestFile(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// ingestFile reads and ingests one settled crawl file.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	doc, err := ReadCrawlFile(path)
	if err != nil {
		logger.Warn("Skipping crawl file: %v", err)
		return
	}

	if _, err := w.ingestor.Ingest(ctx, doc); err != nil {
		logger.Error("Ingest %s: %v", doc.SourceURL, err)
		return
	}
	logger.Info("Ingested crawl file %s", path)
}
