package driving

import (
	"context"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// ImportService is the surface the UI collaborates with for import and reimport.
// Every operation takes the project ID explicitly.
type ImportService interface {
	// Import parses a source and materialises it as a new project.
	// An empty format means detect from the path.
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)

	// ParseAndPreview re-parses a project's source and diffs it against the
	// persisted outline. Nothing is written. An empty path means the
	// recorded import source.
	ParseAndPreview(ctx context.Context, projectID, path string) (*domain.SyncPreview, error)

	// ApplyPreview writes the approved additions and changes atomically.
	// approved holds the keys of approved items; nil approves everything.
	ApplyPreview(
		ctx context.Context,
		projectID string,
		preview *domain.SyncPreview,
		approved []string,
	) (*domain.ReimportSummary, error)

	// Reimport previews the recorded source and, when apply is set,
	// applies every proposed item.
	Reimport(ctx context.Context, projectID string, apply bool) (*domain.SyncPreview, *domain.ReimportSummary, error)

	// Status reports whether an import or reimport is in flight for a project.
	Status(ctx context.Context, projectID string) (*ImportStatus, error)
}

// ImportRequest describes a first import.
type ImportRequest struct {
	// Path is the source file or package directory.
	Path string

	// Name overrides the project name suggested by the source.
	Name string

	// Format forces a parser; empty means detect.
	Format domain.Format
}

// ImportResult is the outcome of a first import.
type ImportResult struct {
	Project domain.Project
	Format  domain.Format
	Summary domain.ReimportSummary
}

// ImportStatus represents the current state of a project's import work.
type ImportStatus struct {
	// ProjectID identifies the project.
	ProjectID string

	// Running indicates an import, preview or apply is in flight.
	Running bool

	// Phase is "parse", "diff" or "apply" while running.
	Phase string
}
