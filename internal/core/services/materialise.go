package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Materialise creates a project and its whole parsed outline in one
// transaction. Positions are dense in document order.
func (a *Applier) Materialise(
	ctx context.Context,
	project domain.Project,
	parsed *domain.ParsedProject,
) (*domain.ReimportSummary, error) {
	// Against an empty tree every node is an addition.
	preview, err := Diff(ctx, parsed, &domain.ProjectTree{Project: project})
	if err != nil {
		return nil, fmt.Errorf("plan outline: %w", err)
	}

	var summary *domain.ReimportSummary
	err = a.tx.WithinTx(ctx, func(ctx context.Context, store driven.ProjectStore) error {
		if err := store.CreateProject(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		var err error
		summary, err = a.apply(ctx, store, project.ID, preview, nil)
		return err
	})
	if err != nil {
		return nil, &domain.ApplyError{ProjectID: project.ID, Err: err}
	}
	return summary, nil
}
