package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

func strPtr(s string) *string { return &s }

// seedProject creates p1 with two chapters, one scene and two beats.
func seedProject(t *testing.T, store *ProjectStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, domain.Project{ID: "p1", Name: "Novel"}))
	require.NoError(t, store.CreateChapter(ctx, domain.Chapter{ID: "c2", ProjectID: "p1", Title: "Two", Position: 1}))
	require.NoError(t, store.CreateChapter(ctx, domain.Chapter{ID: "c1", ProjectID: "p1", Title: "One", Position: 0, SourceID: strPtr("ch1")}))
	require.NoError(t, store.CreateScene(ctx, domain.Scene{ID: "s1", ChapterID: "c1", Title: "Opening", Synopsis: "It begins"}))
	require.NoError(t, store.CreateBeat(ctx, domain.Beat{ID: "b2", SceneID: "s1", Content: "second", Position: 1}))
	require.NoError(t, store.CreateBeat(ctx, domain.Beat{ID: "b1", SceneID: "s1", Content: "first", Position: 0}))
	require.NoError(t, store.CreateReference(ctx, domain.Reference{
		ID: "r1", ProjectID: "p1", Kind: domain.ReferenceCharacter, Name: "Mara",
		Attributes: map[string]string{"role": "lead"},
	}))
	require.NoError(t, store.LinkSceneReference(ctx, "s1", "r1", strPtr("card-1:character-1")))
}

func TestNewProjectStore(t *testing.T) {
	store := NewProjectStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.data.projects)
}

func TestProjectStore_CreateProject(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, domain.Project{ID: "p1", Name: "Novel"}))

	got, err := store.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Novel", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	err = store.CreateProject(ctx, domain.Project{ID: "p1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = store.CreateProject(ctx, domain.Project{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProjectStore_GetProject_NotFound(t *testing.T) {
	store := NewProjectStore()
	_, err := store.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectStore_ListProjects_SortedByName(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()
	require.NoError(t, store.CreateProject(ctx, domain.Project{ID: "a", Name: "Zebra"}))
	require.NoError(t, store.CreateProject(ctx, domain.Project{ID: "b", Name: "Apple"}))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Apple", projects[0].Name)
	assert.Equal(t, "Zebra", projects[1].Name)
}

func TestProjectStore_CreateChildren_MissingParent(t *testing.T) {
	store := NewProjectStore()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"chapter", func() error { return store.CreateChapter(ctx, domain.Chapter{ID: "c", ProjectID: "nope"}) }},
		{"scene", func() error { return store.CreateScene(ctx, domain.Scene{ID: "s", ChapterID: "nope"}) }},
		{"beat", func() error { return store.CreateBeat(ctx, domain.Beat{ID: "b", SceneID: "nope"}) }},
		{"reference", func() error { return store.CreateReference(ctx, domain.Reference{ID: "r", ProjectID: "nope"}) }},
		{"link", func() error { return store.LinkSceneReference(ctx, "nope", "nope", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), domain.ErrNotFound)
		})
	}
}

func TestProjectStore_GetProjectTree_Ordered(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)

	tree, err := store.GetProjectTree(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, tree.Chapters, 2)
	assert.Equal(t, "One", tree.Chapters[0].Title)
	assert.Equal(t, "ch1", *tree.Chapters[0].SourceID)
	assert.Nil(t, tree.Chapters[1].SourceID)

	scene := tree.Chapters[0].Scenes[0]
	assert.Equal(t, "It begins", scene.Synopsis)
	require.Len(t, scene.Beats, 2)
	assert.Equal(t, "first", scene.Beats[0].Content)
	assert.Equal(t, "second", scene.Beats[1].Content)
	assert.Equal(t, []string{"r1"}, scene.ReferenceIDs)
	require.Len(t, scene.Links, 1)
	assert.Equal(t, "card-1:character-1", *scene.Links[0].SourceID)

	require.Len(t, tree.References, 1)
	assert.Equal(t, "lead", tree.References[0].Attributes["role"])
}

func TestProjectStore_GetProjectTree_ReturnsCopies(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()
	require.NoError(t, store.SetBeatProse(ctx, "b1", strPtr("She ran.")))

	tree, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	*tree.Chapters[0].Scenes[0].Beats[0].Prose = "mutated"
	tree.References[0].Attributes["role"] = "mutated"

	again, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "She ran.", *again.Chapters[0].Scenes[0].Beats[0].Prose)
	assert.Equal(t, "lead", again.References[0].Attributes["role"])
}

func TestProjectStore_LinkSceneReference_KeepsFirstSourceID(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()
	require.NoError(t, store.CreateReference(ctx, domain.Reference{ID: "r2", ProjectID: "p1", Name: "Harbour"}))

	require.NoError(t, store.LinkSceneReference(ctx, "s1", "r1", strPtr("other")))
	require.NoError(t, store.LinkSceneReference(ctx, "s1", "r2", nil))
	require.NoError(t, store.LinkSceneReference(ctx, "s1", "r2", strPtr("card-1:place-5")))

	tree, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	links := tree.Chapters[0].Scenes[0].Links
	require.Len(t, links, 2)
	assert.Equal(t, "card-1:character-1", *links[0].SourceID)
	assert.Equal(t, "card-1:place-5", *links[1].SourceID)
}

func TestProjectStore_Updates_TouchOnlySetFields(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()
	require.NoError(t, store.SetBeatProse(ctx, "b1", strPtr("Prose stays.")))

	require.NoError(t, store.UpdateChapter(ctx, "c1", domain.FieldUpdates{Title: strPtr("Uno")}))
	require.NoError(t, store.UpdateScene(ctx, "s1", domain.FieldUpdates{Synopsis: strPtr("New synopsis")}))
	require.NoError(t, store.UpdateBeat(ctx, "b1", domain.FieldUpdates{Content: strPtr("first, revised")}))
	require.NoError(t, store.UpdateReference(ctx, "r1", domain.FieldUpdates{Name: strPtr("Mara Vell")}))

	tree, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Uno", tree.Chapters[0].Title)
	assert.Equal(t, "Opening", tree.Chapters[0].Scenes[0].Title)
	assert.Equal(t, "New synopsis", tree.Chapters[0].Scenes[0].Synopsis)
	beat := tree.Chapters[0].Scenes[0].Beats[0]
	assert.Equal(t, "first, revised", beat.Content)
	assert.Equal(t, "Prose stays.", *beat.Prose)
	assert.Equal(t, "Mara Vell", tree.References[0].Name)

	assert.ErrorIs(t, store.UpdateChapter(ctx, "nope", domain.FieldUpdates{}), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateScene(ctx, "nope", domain.FieldUpdates{}), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateBeat(ctx, "nope", domain.FieldUpdates{}), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateReference(ctx, "nope", domain.FieldUpdates{}), domain.ErrNotFound)
}

func TestProjectStore_Flags(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()

	require.NoError(t, store.SetArchived(ctx, domain.KindScene, "s1", true))
	require.NoError(t, store.SetLocked(ctx, domain.KindBeat, "b2", true))
	require.NoError(t, store.SetPosition(ctx, domain.KindChapter, "c2", 0))
	require.NoError(t, store.SetPosition(ctx, domain.KindChapter, "c1", 1))

	tree, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Two", tree.Chapters[0].Title)
	scene := tree.Chapters[1].Scenes[0]
	assert.True(t, scene.Archived)
	assert.True(t, scene.Beats[1].Locked)
	assert.False(t, scene.Beats[0].Locked)

	err = store.SetArchived(ctx, domain.KindReference, "r1", true)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.ErrorIs(t, store.SetLocked(ctx, domain.KindChapter, "nope", true), domain.ErrNotFound)
}

func TestProjectStore_DeleteProject_Cascades(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()

	require.NoError(t, store.DeleteProject(ctx, "p1"))

	_, err := store.GetProjectTree(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.data.chapters)
	assert.Empty(t, store.data.scenes)
	assert.Empty(t, store.data.beats)
	assert.Empty(t, store.data.references)
	assert.Empty(t, store.data.links)

	assert.ErrorIs(t, store.DeleteProject(ctx, "p1"), domain.ErrNotFound)
}

func TestProjectStore_WithinTx_Commit(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx driven.ProjectStore) error {
		return tx.CreateChapter(ctx, domain.Chapter{ID: "c3", ProjectID: "p1", Title: "Three", Position: 2})
	})
	require.NoError(t, err)

	tree, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, tree.Chapters, 3)
}

func TestProjectStore_WithinTx_RollsBack(t *testing.T) {
	store := NewProjectStore()
	seedProject(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx driven.ProjectStore) error {
		require.NoError(t, tx.CreateChapter(ctx, domain.Chapter{ID: "c3", ProjectID: "p1", Title: "Three", Position: 2}))
		require.NoError(t, tx.UpdateBeat(ctx, "b1", domain.FieldUpdates{Content: strPtr("changed")}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	tree, err := store.GetProjectTree(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, tree.Chapters, 2)
	assert.Equal(t, "first", tree.Chapters[0].Scenes[0].Beats[0].Content)
}
