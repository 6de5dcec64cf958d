package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the storage directory and reports
// changed keys until ctx is cancelled.
//
// An atomic Set shows up as a Create on the key's file (the rename target);
// temp files are ignored. Bursts of events for the same key are coalesced
// into a single callback after a short quiet period.
func (f *FS) Watch(ctx context.Context, logger *slog.Logger, cb ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", f.root))

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func(key string) {
		pending[key] = struct{}{}
		if flushTimer == nil {
			flushTimer = time.NewTimer(f.debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(f.debounce)
		}
	}

	flush := func() {
		keys := make([]string, 0, len(pending))
		for k := range pending {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		clear(pending)
		for _, k := range keys {
			logger.Debug("watcher: changed", slog.String("key", k))
			if cb != nil {
				cb(k)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") || ValidKey(name) != nil {
				continue
			}
			schedule(name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
