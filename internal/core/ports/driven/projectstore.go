package driven

import (
	"context"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// ProjectStore persists projects and their outlines.
// The core never issues raw storage queries; everything goes through here.
type ProjectStore interface {
	// CreateProject stores a new project.
	CreateProject(ctx context.Context, project domain.Project) error

	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// ListProjects returns all projects.
	ListProjects(ctx context.Context) ([]domain.Project, error)

	// DeleteProject removes a project and its whole outline.
	DeleteProject(ctx context.Context, id string) error

	// GetProjectTree returns the project with chapters, scenes and beats
	// ordered by position, plus its references.
	GetProjectTree(ctx context.Context, projectID string) (*domain.ProjectTree, error)

	// CreateChapter stores a chapter under chapter.ProjectID.
	CreateChapter(ctx context.Context, chapter domain.Chapter) error

	// CreateScene stores a scene under scene.ChapterID.
	CreateScene(ctx context.Context, scene domain.Scene) error

	// CreateBeat stores a beat under beat.SceneID.
	CreateBeat(ctx context.Context, beat domain.Beat) error

	// CreateReference stores a reference under ref.ProjectID.
	CreateReference(ctx context.Context, ref domain.Reference) error

	// LinkSceneReference associates a scene with a reference. sourceID is the
	// association's native id, nil when it has none. Linking twice is a no-op
	// except that a missing source id is filled in.
	LinkSceneReference(ctx context.Context, sceneID, referenceID string, sourceID *string) error

	// UpdateChapter writes the set fields of a chapter.
	UpdateChapter(ctx context.Context, id string, updates domain.FieldUpdates) error

	// UpdateScene writes the set fields of a scene.
	UpdateScene(ctx context.Context, id string, updates domain.FieldUpdates) error

	// UpdateBeat writes the set fields of a beat. Prose is not reachable from here.
	UpdateBeat(ctx context.Context, id string, updates domain.FieldUpdates) error

	// UpdateReference writes the set fields of a reference.
	UpdateReference(ctx context.Context, id string, updates domain.FieldUpdates) error

	// SetBeatProse stores the writer's prose for a beat. Only writer-side
	// services call this; import and sync never do.
	SetBeatProse(ctx context.Context, beatID string, prose *string) error

	// SetArchived sets the archived flag of a chapter, scene or beat.
	SetArchived(ctx context.Context, kind domain.ItemKind, id string, archived bool) error

	// SetLocked sets the locked flag of a chapter, scene or beat.
	SetLocked(ctx context.Context, kind domain.ItemKind, id string, locked bool) error

	// SetPosition stores the position of a chapter, scene or beat.
	// Callers keep sibling positions dense.
	SetPosition(ctx context.Context, kind domain.ItemKind, id string, position int) error
}

// Transactor runs a unit of work atomically. Either every write made
// through the supplied store commits, or none does.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store ProjectStore) error) error
}

// ImportSourceStore remembers where each project was imported from.
type ImportSourceStore interface {
	// Save stores or updates the import source of a project.
	Save(ctx context.Context, source domain.ImportSource) error

	// Get retrieves the import source of a project.
	Get(ctx context.Context, projectID string) (*domain.ImportSource, error)

	// List returns every recorded import source.
	List(ctx context.Context) ([]domain.ImportSource, error)

	// Delete removes the import source of a project.
	Delete(ctx context.Context, projectID string) error
}
