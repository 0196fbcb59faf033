package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
	"github.com/custodia-labs/quill/internal/logger"
)

// Ensure ProjectService implements the interface.
var _ driving.ProjectService = (*ProjectService)(nil)

// ProjectService handles the writer's own edits to a project.
type ProjectService struct {
	store   driven.ProjectStore
	tx      driven.Transactor
	sources driven.ImportSourceStore
	locks   *ProjectLocks
}

// NewProjectService creates a new project service.
func NewProjectService(
	store driven.ProjectStore,
	tx driven.Transactor,
	sources driven.ImportSourceStore,
	locks *ProjectLocks,
) *ProjectService {
	return &ProjectService{
		store:   store,
		tx:      tx,
		sources: sources,
		locks:   locks,
	}
}

// List returns all projects.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.store.ListProjects(ctx)
}

// Tree returns a project's full outline.
func (s *ProjectService) Tree(ctx context.Context, projectID string) (*domain.ProjectTree, error) {
	return s.store.GetProjectTree(ctx, projectID)
}

// SetProse stores the writer's prose for a beat of the project.
func (s *ProjectService) SetProse(ctx context.Context, projectID, beatID string, prose *string) error {
	return s.withLock(ctx, projectID, func() error {
		tree, err := s.store.GetProjectTree(ctx, projectID)
		if err != nil {
			return fmt.Errorf("get project tree: %w", err)
		}
		if _, ok := tree.FindBeat(beatID); !ok {
			return fmt.Errorf("beat %s: %w", beatID, domain.ErrNotFound)
		}
		return s.store.SetBeatProse(ctx, beatID, prose)
	})
}

// Archive soft-hides a chapter, scene or beat.
func (s *ProjectService) Archive(ctx context.Context, projectID string, kind domain.ItemKind, id string) error {
	return s.withLock(ctx, projectID, func() error {
		if err := s.checkNode(ctx, projectID, kind, id); err != nil {
			return err
		}
		logger.Debug("Archiving %s %s", kind, id)
		return s.store.SetArchived(ctx, kind, id, true)
	})
}

// SetLocked locks or unlocks a node against sync changes.
func (s *ProjectService) SetLocked(
	ctx context.Context,
	projectID string,
	kind domain.ItemKind,
	id string,
	locked bool,
) error {
	return s.withLock(ctx, projectID, func() error {
		if err := s.checkNode(ctx, projectID, kind, id); err != nil {
			return err
		}
		return s.store.SetLocked(ctx, kind, id, locked)
	})
}

// Reorder moves a node among its siblings. Out-of-range positions clamp to
// the ends; sibling positions stay dense.
func (s *ProjectService) Reorder(
	ctx context.Context,
	projectID string,
	kind domain.ItemKind,
	id string,
	position int,
) error {
	return s.withLock(ctx, projectID, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, store driven.ProjectStore) error {
			tree, err := store.GetProjectTree(ctx, projectID)
			if err != nil {
				return fmt.Errorf("get project tree: %w", err)
			}
			siblings, err := siblingsOf(tree, kind, id)
			if err != nil {
				return err
			}

			order := make([]string, 0, len(siblings))
			for _, sib := range siblings {
				if sib.id != id {
					order = append(order, sib.id)
				}
			}
			position = max(0, min(position, len(order)))
			order = append(order[:position], append([]string{id}, order[position:]...)...)

			current := make(map[string]int, len(siblings))
			for _, sib := range siblings {
				current[sib.id] = sib.position
			}
			for i, sid := range order {
				if current[sid] == i {
					continue
				}
				if err := store.SetPosition(ctx, kind, sid, i); err != nil {
					return fmt.Errorf("set position of %s: %w", sid, err)
				}
			}
			return nil
		})
	})
}

// Delete removes a whole project and its import source.
func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	return s.withLock(ctx, projectID, func() error {
		if err := s.store.DeleteProject(ctx, projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if err := s.sources.Delete(ctx, projectID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete import source: %w", err)
		}
		logger.Info("Deleted project %s", projectID)
		return nil
	})
}

func (s *ProjectService) withLock(ctx context.Context, projectID string, fn func() error) error {
	release, err := s.locks.Acquire(ctx, projectID)
	if err != nil {
		return fmt.Errorf("acquire project lock: %w", err)
	}
	defer release()
	return fn()
}

// checkNode verifies that a node belongs to the project.
func (s *ProjectService) checkNode(ctx context.Context, projectID string, kind domain.ItemKind, id string) error {
	tree, err := s.store.GetProjectTree(ctx, projectID)
	if err != nil {
		return fmt.Errorf("get project tree: %w", err)
	}
	_, err = siblingsOf(tree, kind, id)
	return err
}

type sibling struct {
	id       string
	position int
}

// siblingsOf returns the node and its siblings ordered by position.
func siblingsOf(tree *domain.ProjectTree, kind domain.ItemKind, id string) ([]sibling, error) {
	var groups [][]sibling
	switch kind {
	case domain.KindChapter:
		var g []sibling
		for _, c := range tree.Chapters {
			g = append(g, sibling{c.ID, c.Position})
		}
		groups = append(groups, g)
	case domain.KindScene:
		for _, c := range tree.Chapters {
			var g []sibling
			for _, sc := range c.Scenes {
				g = append(g, sibling{sc.ID, sc.Position})
			}
			groups = append(groups, g)
		}
	case domain.KindBeat:
		for _, c := range tree.Chapters {
			for _, sc := range c.Scenes {
				var g []sibling
				for _, b := range sc.Beats {
					g = append(g, sibling{b.ID, b.Position})
				}
				groups = append(groups, g)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, kind)
	}

	for _, g := range groups {
		for _, sib := range g {
			if sib.id == id {
				sort.SliceStable(g, func(i, j int) bool { return g[i].position < g[j].position })
				return g, nil
			}
		}
	}
	return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}
