package driving

import (
	"context"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// ProjectService covers the writer's own edits. Every write is serialised
// with reimport apply on the same project.
type ProjectService interface {
	// List returns all projects.
	List(ctx context.Context) ([]domain.Project, error)

	// Tree returns a project's full outline.
	Tree(ctx context.Context, projectID string) (*domain.ProjectTree, error)

	// SetProse stores the writer's prose for a beat. Nil clears it.
	SetProse(ctx context.Context, projectID, beatID string, prose *string) error

	// Archive soft-hides a chapter, scene or beat. Nothing is ever hard-deleted.
	Archive(ctx context.Context, projectID string, kind domain.ItemKind, id string) error

	// SetLocked locks or unlocks a node against sync changes.
	SetLocked(ctx context.Context, projectID string, kind domain.ItemKind, id string, locked bool) error

	// Reorder moves a node to a new position among its siblings, keeping positions dense.
	Reorder(ctx context.Context, projectID string, kind domain.ItemKind, id string, position int) error

	// Delete removes a whole project.
	Delete(ctx context.Context, projectID string) error
}

// SourceMonitor watches recorded import sources for changes.
type SourceMonitor interface {
	// Run watches until ctx is cancelled, delivering change events.
	// It never applies anything itself.
	Run(ctx context.Context, events chan<- domain.SourceChanged) error
}
