package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoDirectory is returned by Watch when the knowledge base uses the
// built-in samples.
var ErrNoDirectory = errors.New("knowledge base has no directory to watch")

// Watch reloads the knowledge base whenever a *_docs.json file in its
// directory changes. Bursts of events are coalesced by the debounce delay.
// A failed reload is logged and the previous index is kept. Watch blocks
// until ctx is done.
func (kb *KnowledgeBase) Watch(ctx context.Context) error {
	if kb.dir == "" {
		return ErrNoDirectory
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(kb.dir); err != nil {
		return fmt.Errorf("watch %s: %w", kb.dir, err)
	}
	kb.logger.Info("watching knowledge base", "dir", kb.dir, "debounce", kb.debounce)

	timer := time.NewTimer(kb.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isKnowledgeFile(event) {
				continue
			}
			kb.logger.Debug("knowledge base file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(kb.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			kb.logger.Warn("knowledge base watcher error", "error", err)

		case <-timer.C:
			if err := kb.Reload(ctx); err != nil {
				kb.logger.Error("knowledge base reload failed", "dir", kb.dir, "error", err)
			}
		}
	}
}

func isKnowledgeFile(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(filepath.Base(event.Name), "_docs.json")
}
