// Package watch reindexes documents as they appear in the documents
// directory.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ragstack/ragchat/extract"
)

// debounce absorbs the write bursts editors and downloads produce.
const debounce = 500 * time.Millisecond

// Indexer ingests one file into the document store.
type Indexer interface {
	LoadFile(ctx context.Context, path string) (int, error)
}

// Watcher feeds new and changed files to the indexer.
type Watcher struct {
	fw      *fsnotify.Watcher
	indexer Indexer
	log     *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New starts watching dir. Call Run to process events.
func New(dir string, indexer Indexer, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher failed, err: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s failed, err: %w", dir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{fw: fw, indexer: indexer, log: log, timers: make(map[string]*time.Timer)}, nil
}

// Run blocks until ctx is done, indexing files after their write events
// settle.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !extract.Supported(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		chunks, err := w.indexer.LoadFile(ctx, path)
		if err != nil {
			w.log.Warn("reindex failed", zap.String("path", path), zap.Error(err))
			return
		}
		w.log.Info("file indexed", zap.String("path", path), zap.Int("chunks", chunks))
	})
}
