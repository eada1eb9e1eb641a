// Package watch re-runs a callback when files in a directory change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay coalesces bursts of writes (editor save, rename dance).
const DefaultDelay = 500 * time.Millisecond

// Options configures Run.
type Options struct {
	// Dir is watched non-recursively.
	Dir string
	// Match filters on the base name. Nil matches everything.
	Match func(name string) bool
	// Delay is the debounce window; zero means DefaultDelay.
	Delay  time.Duration
	Logger *zap.Logger
}

// MarkdownOnly matches *.md files.
func MarkdownOnly(name string) bool {
	return filepath.Ext(name) == ".md"
}

// Run calls onChange once per debounced burst of matching events until ctx
// is done. Calls are never concurrent. It returns nil on cancellation.
func Run(ctx context.Context, opts Options, onChange func(context.Context)) error {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(opts.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", opts.Dir, err)
	}

	// Reset without draining is safe on the synchronous timers of go1.23+.
	timer := time.NewTimer(delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if opts.Match != nil && !opts.Match(filepath.Base(ev.Name)) {
				continue
			}
			timer.Reset(delay)
		case <-timer.C:
			onChange(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.String("dir", opts.Dir), zap.Error(err))
		}
	}
}
