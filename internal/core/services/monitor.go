package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
	"github.com/custodia-labs/quill/internal/logger"
)

// Ensure SourceMonitor implements the interface.
var _ driving.SourceMonitor = (*SourceMonitor)(nil)

// DefaultDebounce is how long the monitor waits for a burst of writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// DefaultRefresh is how often the monitor re-lists recorded sources, so
// projects imported after Run started are watched too.
const DefaultRefresh = 5 * time.Second

// SourceMonitor reports import sources whose bytes changed on disk.
// It only notifies; applying is always the writer's decision.
type SourceMonitor struct {
	sources  driven.ImportSourceStore
	watcher  driven.SourceWatcher
	debounce time.Duration
	refresh  time.Duration
}

// NewSourceMonitor creates a monitor. A non-positive debounce uses DefaultDebounce.
func NewSourceMonitor(sources driven.ImportSourceStore, watcher driven.SourceWatcher, debounce time.Duration) *SourceMonitor {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &SourceMonitor{sources: sources, watcher: watcher, debounce: debounce, refresh: DefaultRefresh}
}

// Run watches every recorded source until ctx is cancelled. Sources are
// re-listed on every settle tick and every refresh interval.
func (m *SourceMonitor) Run(ctx context.Context, events chan<- domain.SourceChanged) error {
	watched := make(map[string]string) // project id -> watched path
	if err := m.sync(ctx, watched); err != nil {
		return err
	}

	changes, errs := m.watcher.Events(ctx)
	refresh := time.NewTicker(m.refresh)
	defer refresh.Stop()

	pending := make(map[string]bool)
	notified := make(map[string]string)
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case path, ok := <-changes:
			if !ok {
				return nil
			}
			for projectID, src := range watched {
				if within(src, path) {
					pending[projectID] = true
				}
			}
			if len(pending) > 0 {
				settle = time.After(m.debounce)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("Watcher error: %v", err)

		case <-refresh.C:
			if err := m.sync(ctx, watched); err != nil {
				logger.Warn("Refresh import sources: %v", err)
			}

		case <-settle:
			settle = nil
			if err := m.sync(ctx, watched); err != nil {
				logger.Warn("Refresh import sources: %v", err)
			}
			for projectID := range pending {
				if err := m.check(ctx, projectID, notified, events); err != nil {
					return nil
				}
			}
			clear(pending)
		}
	}
}

// sync brings the watch set in line with the recorded sources: new and
// moved sources are added, sources of deleted projects are removed.
func (m *SourceMonitor) sync(ctx context.Context, watched map[string]string) error {
	recorded, err := m.sources.List(ctx)
	if err != nil {
		return fmt.Errorf("list import sources: %w", err)
	}

	current := make(map[string]string, len(recorded))
	for _, src := range recorded {
		current[src.ProjectID] = src.Path
	}

	for projectID, path := range watched {
		if current[projectID] == path {
			continue
		}
		delete(watched, projectID)
		if !watchedElsewhere(watched, path) {
			if err := m.watcher.Remove(path); err != nil {
				logger.Debug("Cannot unwatch %s: %v", path, err)
			}
		}
	}

	for _, src := range recorded {
		if _, ok := watched[src.ProjectID]; ok {
			continue
		}
		if err := m.watcher.Add(src.Path); err != nil {
			logger.Warn("Cannot watch %s: %v", src.Path, err)
			continue
		}
		watched[src.ProjectID] = src.Path
		logger.Debug("Watching %s for project %s", src.Path, src.ProjectID)
	}
	return nil
}

func watchedElsewhere(watched map[string]string, path string) bool {
	for _, p := range watched {
		if p == path {
			return true
		}
	}
	return false
}

// check emits an event when the source differs from both the recorded
// checksum and the last one reported. It returns an error only when ctx
// ended while sending.
func (m *SourceMonitor) check(
	ctx context.Context,
	projectID string,
	notified map[string]string,
	events chan<- domain.SourceChanged,
) error {
	src, err := m.sources.Get(ctx, projectID)
	if err != nil {
		logger.Debug("Import source of %s is gone: %v", projectID, err)
		return nil
	}
	sum, err := sourceChecksum(src.Path)
	if err != nil {
		logger.Warn("Cannot read %s: %v", src.Path, err)
		return nil
	}
	if sum == src.Checksum || sum == notified[projectID] {
		return nil
	}
	notified[projectID] = sum

	select {
	case events <- domain.SourceChanged{ProjectID: projectID, Path: src.Path, Checksum: sum}:
		logger.Info("Source of project %s changed: %s", projectID, src.Path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// within reports whether changed is the source itself or a file inside it.
func within(source, changed string) bool {
	source = filepath.Clean(source)
	changed = filepath.Clean(changed)
	return changed == source || strings.HasPrefix(changed, source+string(filepath.Separator))
}
