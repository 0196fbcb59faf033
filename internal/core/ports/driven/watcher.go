package driven

import "context"

// SourceWatcher reports file system changes to import sources.
type SourceWatcher interface {
	// Add starts watching a file or package directory.
	Add(path string) error

	// Remove stops watching a path.
	Remove(path string) error

	// Events delivers the paths of watched sources that changed.
	// The channel closes when ctx is cancelled or Close is called.
	Events(ctx context.Context) (<-chan string, <-chan error)

	// Close releases the watcher.
	Close() error
}
