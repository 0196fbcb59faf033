package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/core/domain"
)

func TestImportSourceStore_SaveAndGet(t *testing.T) {
	store := NewImportSourceStore()
	ctx := context.Background()
	now := time.Now()

	src := domain.ImportSource{
		ProjectID:  "p1",
		Path:       "/home/writer/novel.pltr",
		Format:     domain.FormatPlottr,
		Checksum:   "abc",
		LastImport: now,
	}
	require.NoError(t, store.Save(ctx, src))

	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, src, *got)

	src.Checksum = "def"
	require.NoError(t, store.Save(ctx, src))
	got, err = store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "def", got.Checksum)
}

func TestImportSourceStore_Errors(t *testing.T) {
	store := NewImportSourceStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, domain.ImportSource{}), domain.ErrInvalidInput)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportSourceStore_ListAndDelete(t *testing.T) {
	store := NewImportSourceStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.ImportSource{ProjectID: "b", Path: "/b.md"}))
	require.NoError(t, store.Save(ctx, domain.ImportSource{ProjectID: "a", Path: "/a.md"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ProjectID)

	require.NoError(t, store.Delete(ctx, "a"))
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
