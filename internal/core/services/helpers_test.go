package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/parsers"
	"github.com/custodia-labs/quill/internal/parsers/markdown"
	"github.com/custodia-labs/quill/internal/parsers/plottr"
)

var errBoom = errors.New("disk full")

// seedStore persists the same outline as sampleTree.
func seedStore(t *testing.T, store *memory.ProjectStore) {
	t.Helper()
	ctx := context.Background()
	tree := sampleTree()

	require.NoError(t, store.CreateProject(ctx, tree.Project))
	for _, ch := range tree.Chapters {
		ch.ProjectID = tree.Project.ID
		require.NoError(t, store.CreateChapter(ctx, ch))
		for _, sc := range ch.Scenes {
			require.NoError(t, store.CreateScene(ctx, sc))
			for _, b := range sc.Beats {
				require.NoError(t, store.CreateBeat(ctx, b))
			}
		}
	}
}

func getTree(t *testing.T, store driven.ProjectStore, projectID string) *domain.ProjectTree {
	t.Helper()
	tree, err := store.GetProjectTree(context.Background(), projectID)
	require.NoError(t, err)
	return tree
}

// failingStore fails CreateBeat; everything else reaches the real store.
type failingStore struct {
	driven.ProjectStore
}

func (failingStore) CreateBeat(context.Context, domain.Beat) error {
	return errBoom
}

// failingTx hands fn a store whose CreateBeat fails.
type failingTx struct {
	inner *memory.ProjectStore
}

func (f failingTx) WithinTx(ctx context.Context, fn func(ctx context.Context, store driven.ProjectStore) error) error {
	return f.inner.WithinTx(ctx, func(ctx context.Context, store driven.ProjectStore) error {
		return fn(ctx, failingStore{store})
	})
}

// harness wires the services over memory stores and real parsers.
type harness struct {
	store    *memory.ProjectStore
	sources  *memory.ImportSourceStore
	locks    *ProjectLocks
	imports  *ImportService
	projects *ProjectService
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, markdown.New(), plottr.New())
}

// newHarnessWith registers only the given parsers.
func newHarnessWith(t *testing.T, ps ...driven.Parser) *harness {
	t.Helper()
	registry := parsers.NewRegistry()
	for _, p := range ps {
		registry.Register(p)
	}

	store := memory.NewProjectStore()
	sources := memory.NewImportSourceStore()
	locks := NewProjectLocks()
	return &harness{
		store:    store,
		sources:  sources,
		locks:    locks,
		imports:  NewImportService(registry, store, store, sources, locks),
		projects: NewProjectService(store, store, sources, locks),
		dir:      t.TempDir(),
	}
}

// write stores content under the harness directory and returns its path.
func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// writeTree creates files under dir/root and returns the root path.
func (h *harness) writeTree(t *testing.T, root string, files map[string]string) string {
	t.Helper()
	base := filepath.Join(h.dir, root)
	for rel, content := range files {
		path := filepath.Join(base, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return base
}
