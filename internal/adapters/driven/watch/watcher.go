// Package watch implements driven.SourceWatcher on fsnotify.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Ensure Watcher implements the interface.
var _ driven.SourceWatcher = (*Watcher)(nil)

// Watcher watches import sources. A single file is watched through its
// directory so editors that save by rename are still seen. A package
// directory is watched recursively, since fsnotify is not.
type Watcher struct {
	fs *fsnotify.Watcher

	mu    sync.Mutex
	roots map[string]bool // cleaned source path -> is directory
	dirs  map[string]int  // watched directory -> reference count
}

// NewWatcher creates a watcher with nothing watched.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fs:    w,
		roots: make(map[string]bool),
		dirs:  make(map[string]int),
	}, nil
}

// Add starts watching a file or package directory.
func (w *Watcher) Add(path string) error {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.roots[path]; ok {
		return nil
	}

	if !info.IsDir() {
		if err := w.watchDir(filepath.Dir(path)); err != nil {
			return err
		}
		w.roots[path] = false
		return nil
	}

	if err := w.watchTree(path); err != nil {
		return err
	}
	w.roots[path] = true
	return nil
}

// Remove stops watching a path.
func (w *Watcher) Remove(path string) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	isDir, ok := w.roots[path]
	if !ok {
		return nil
	}
	delete(w.roots, path)

	if !isDir {
		w.unwatchDir(filepath.Dir(path))
		return nil
	}
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
			w.unwatchDir(dir)
		}
	}
	return nil
}

// Events delivers the paths of watched sources that changed. Paths inside
// a package directory are reported as they are; the caller maps them back
// to their source.
func (w *Watcher) Events(ctx context.Context) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errs := make(chan error, 4)

	go func() {
		defer close(out)
		defer close(errs)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.fs.Events:
				if !ok {
					return
				}
				path, relevant := w.handle(event)
				if !relevant {
					continue
				}
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return out, errs
}

// Close releases the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// handle filters an fsnotify event down to a source change.
func (w *Watcher) handle(event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod || hidden(event.Name) {
		return "", false
	}
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	for root, isDir := range w.roots {
		if !isDir {
			if path == root {
				return path, true
			}
			continue
		}
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		// New sub-directories of a package need their own watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				_ = w.watchTree(path)
			}
		}
		return path, true
	}
	return "", false
}

// watchTree watches dir and every non-hidden directory beneath it.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && hidden(p) {
			return filepath.SkipDir
		}
		return w.watchDir(p)
	})
}

func (w *Watcher) watchDir(dir string) error {
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	return nil
}

func (w *Watcher) unwatchDir(dir string) {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	_ = w.fs.Remove(dir)
}

// hidden matches dotfiles and editor swap files.
func hidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
