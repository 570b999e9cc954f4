// Package filesystem watches local directories and feeds changed files to
// the ingest pipeline.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// DefaultDebounce coalesces the burst of events editors emit for one save.
const DefaultDebounce = 250 * time.Millisecond

// Ensure Watcher implements the interface.
var _ driving.Watcher = (*Watcher)(nil)

// FileIngester indexes a single file and drops documents by ID.
type FileIngester interface {
	IngestFile(ctx context.Context, path, docID string) (*domain.IndexSummary, error)
	DeleteDocument(ctx context.Context, id string) error
}

// MIMEDetector maps a path to a supported MIME type, or "" if unsupported.
type MIMEDetector interface {
	DetectMIMEType(path string) string
}

// Watcher re-ingests supported files when they are created or written and
// deletes their evidence when they are removed or renamed away.
type Watcher struct {
	ingester FileIngester
	detector MIMEDetector
	debounce time.Duration
	ignore   []string
}

// NewWatcher creates a watcher that ingests through ingester.
func NewWatcher(ingester FileIngester, detector MIMEDetector) *Watcher {
	return &Watcher{
		ingester: ingester,
		detector: detector,
		debounce: DefaultDebounce,
		ignore:   []string{".git", "node_modules"},
	}
}

// SetDebounce sets the quiet period before pending changes are ingested.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Watch blocks until ctx is cancelled. Subdirectories are watched too,
// including ones created while watching.
func (w *Watcher) Watch(ctx context.Context, dir string, onEvent func(driving.WatchEvent)) error {
	dir = ResolvePath(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, dir); err != nil {
		return err
	}
	logger.Info("Watching %s", dir)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]domain.ChangeType)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addRecursive(fw, event.Name); err != nil {
						logger.Warn("watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			change, ok := w.classify(event)
			if !ok {
				continue
			}
			prev, seen := pending[event.Name]
			pending[event.Name] = merge(prev, seen, change)
			timer.Reset(w.debounce)

		case <-timer.C:
			w.flush(ctx, pending, onEvent)
			pending = make(map[string]domain.ChangeType)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// merge folds a new change into the one already pending for a path.
// A create followed by writes is still a create; the latest delete or
// create wins otherwise.
func merge(prev domain.ChangeType, seen bool, next domain.ChangeType) domain.ChangeType {
	if seen && prev == domain.ChangeCreated && next == domain.ChangeUpdated {
		return prev
	}
	return next
}

// flush applies pending changes in path order.
func (w *Watcher) flush(ctx context.Context, pending map[string]domain.ChangeType, onEvent func(driving.WatchEvent)) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		ev := driving.WatchEvent{Path: path, Change: pending[path]}
		// A file replaced by rename-over is back by now.
		if ev.Change == domain.ChangeDeleted && exists(path) {
			ev.Change = domain.ChangeUpdated
		}
		id := DocumentID(path)

		if ev.Change == domain.ChangeDeleted {
			ev.Err = w.ingester.DeleteDocument(ctx, id)
			if ev.Err == nil {
				ev.Summary = &domain.IndexSummary{DocumentID: id}
				logger.Debug("dropped %s (%s)", path, id)
			}
		} else {
			ev.Summary, ev.Err = w.ingester.IngestFile(ctx, path, id)
			if ev.Err == nil {
				logger.Debug("re-ingested %s (%d chunks)", path, ev.Summary.ChunksIndexed)
			}
		}
		if ev.Err != nil {
			logger.Warn("%s %s: %v", ev.Change, path, ev.Err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

// classify maps an fsnotify event to a change worth applying.
func (w *Watcher) classify(event fsnotify.Event) (domain.ChangeType, bool) {
	if IsHidden(event.Name) || w.ignored(event.Name) {
		return 0, false
	}
	if w.detector.DetectMIMEType(event.Name) == "" {
		return 0, false
	}

	var change domain.ChangeType
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The path is gone, so there is nothing to stat.
		return domain.ChangeDeleted, true
	case event.Has(fsnotify.Create):
		change = domain.ChangeCreated
	case event.Has(fsnotify.Write):
		change = domain.ChangeUpdated
	default:
		return 0, false
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return change, true
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// addRecursive watches root and every non-hidden subdirectory.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (IsHidden(path) || w.ignored(path)) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		for _, ig := range w.ignore {
			if part == ig {
				return true
			}
		}
	}
	return false
}

// IsHidden reports whether the base name starts with a dot.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// DocumentID returns a stable doc_<8 hex> ID for a file path, so that
// re-ingesting a changed file replaces its previous evidence.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path))
	return "doc_" + strings.ReplaceAll(id.String(), "-", "")[:8]
}
