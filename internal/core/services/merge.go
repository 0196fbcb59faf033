package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/logger"
)

// Applier writes approved parts of a preview to the store. Every apply runs
// in one transaction; on any error nothing is committed.
type Applier struct {
	tx    driven.Transactor
	newID func() string
}

// NewApplier creates an applier that writes through tx.
func NewApplier(tx driven.Transactor) *Applier {
	return &Applier{tx: tx, newID: uuid.NewString}
}

// Apply writes the approved additions and changes of a preview.
// approved holds addition and change keys; nil approves everything and an
// empty slice approves nothing.
func (a *Applier) Apply(
	ctx context.Context,
	projectID string,
	preview *domain.SyncPreview,
	approved []string,
) (*domain.ReimportSummary, error) {
	if preview == nil {
		return nil, fmt.Errorf("%w: nil preview", domain.ErrInvalidInput)
	}

	var summary *domain.ReimportSummary
	err := a.tx.WithinTx(ctx, func(ctx context.Context, store driven.ProjectStore) error {
		var err error
		summary, err = a.apply(ctx, store, projectID, preview, newApproval(approved))
		return err
	})
	if err != nil {
		return nil, &domain.ApplyError{ProjectID: projectID, Err: err}
	}
	return summary, nil
}

// approval answers whether a key was approved. A nil set approves all.
type approval map[string]bool

func newApproval(keys []string) approval {
	if keys == nil {
		return nil
	}
	a := make(approval, len(keys))
	for _, k := range keys {
		a[k] = true
	}
	return a
}

func (a approval) has(key string) bool {
	return a == nil || a[key]
}

func (a *Applier) apply(
	ctx context.Context,
	store driven.ProjectStore,
	projectID string,
	preview *domain.SyncPreview,
	approved approval,
) (*domain.ReimportSummary, error) {
	// 1. Re-read the outline inside the transaction
	tree, err := store.GetProjectTree(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("read project tree: %w", err)
	}
	ix := indexTree(tree)
	summary := &domain.ReimportSummary{}

	// 2. Additions, in preview order so parents precede children
	created := make(map[string]string)
	var links []pendingLink
	for i := range preview.Additions {
		add := &preview.Additions[i]
		if !approved.has(add.Key) {
			continue
		}

		var parentID string
		if add.Kind != domain.KindChapter && add.Kind != domain.KindReference {
			var ok bool
			parentID, ok, err = ix.parentOf(add, created)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Debug("Skipping %s %q: parent %s was not added", add.Kind, add.Title, add.ParentKey)
				summary.Skipped++
				continue
			}
		}

		id := a.newID()
		switch add.Kind {
		case domain.KindChapter:
			err = store.CreateChapter(ctx, domain.Chapter{
				ID:        id,
				ProjectID: projectID,
				Title:     add.Title,
				Position:  ix.next(projectID),
				SourceID:  add.SourceID,
			})
			summary.ChaptersAdded++
		case domain.KindScene:
			err = store.CreateScene(ctx, domain.Scene{
				ID:        id,
				ChapterID: parentID,
				Title:     add.Title,
				Synopsis:  add.Synopsis,
				Position:  ix.next(parentID),
				SourceID:  add.SourceID,
			})
			if len(add.Links) > 0 {
				links = append(links, pendingLink{sceneID: id, assocs: add.Links})
			}
			summary.ScenesAdded++
		case domain.KindBeat:
			err = store.CreateBeat(ctx, domain.Beat{
				ID:       id,
				SceneID:  parentID,
				Content:  add.Content,
				Position: ix.next(parentID),
				SourceID: add.SourceID,
			})
			summary.BeatsAdded++
		case domain.KindReference:
			err = store.CreateReference(ctx, domain.Reference{
				ID:         id,
				ProjectID:  projectID,
				Kind:       add.ReferenceKind,
				Name:       add.Title,
				Attributes: add.Attributes,
				SourceID:   add.SourceID,
			})
			if add.SourceID != nil {
				ix.refsBySource[*add.SourceID] = id
			}
			summary.ReferencesAdded++
		case domain.KindLink:
			links = append(links, pendingLink{sceneID: parentID, assocs: add.Links, approved: true})
		default:
			err = fmt.Errorf("%w: addition kind %q", domain.ErrUnsupportedType, add.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("add %s %q: %w", add.Kind, add.Title, err)
		}
		created[add.Key] = id
	}

	// 3. Scene links, once every new reference exists
	for _, l := range links {
		for _, assoc := range l.assocs {
			refID, ok := ix.refsBySource[assoc.ReferenceSourceID]
			if !ok {
				logger.Debug("Scene %s links reference %s, which was not added", l.sceneID, assoc.ReferenceSourceID)
				if l.approved {
					summary.Skipped++
				}
				continue
			}
			if err := store.LinkSceneReference(ctx, l.sceneID, refID, assoc.SourceID); err != nil {
				return nil, fmt.Errorf("link scene %s: %w", l.sceneID, err)
			}
			summary.LinksAdded++
		}
	}

	// 4. Field changes
	updated := make(map[domain.ItemKind]map[string]bool)
	prose := make(map[string]bool)
	for i := range preview.Changes {
		ch := &preview.Changes[i]
		if !approved.has(ch.Key) {
			continue
		}

		locked, err := ix.target(ch)
		if err != nil {
			return nil, err
		}
		if locked {
			logger.Debug("Skipping change to locked %s %s", ch.Kind, ch.TargetID)
			summary.Skipped++
			continue
		}

		updates, err := fieldUpdates(ch)
		if err != nil {
			return nil, err
		}
		switch ch.Kind {
		case domain.KindChapter:
			err = store.UpdateChapter(ctx, ch.TargetID, updates)
		case domain.KindScene:
			err = store.UpdateScene(ctx, ch.TargetID, updates)
		case domain.KindBeat:
			err = store.UpdateBeat(ctx, ch.TargetID, updates)
		case domain.KindReference:
			err = store.UpdateReference(ctx, ch.TargetID, updates)
		}
		if err != nil {
			return nil, fmt.Errorf("update %s %s: %w", ch.Kind, ch.TargetID, err)
		}

		if updated[ch.Kind] == nil {
			updated[ch.Kind] = make(map[string]bool)
		}
		updated[ch.Kind][ch.TargetID] = true
		for _, id := range ix.proseBeneath(ch.Kind, ch.TargetID) {
			prose[id] = true
		}
	}

	summary.ChaptersUpdated = len(updated[domain.KindChapter])
	summary.ScenesUpdated = len(updated[domain.KindScene])
	summary.BeatsUpdated = len(updated[domain.KindBeat])
	summary.ReferencesUpdated = len(updated[domain.KindReference])
	summary.ProsePreserved = len(prose)
	return summary, nil
}

type pendingLink struct {
	sceneID string
	assocs  []domain.ParsedAssociation

	// approved is set for link additions, which count as skipped when
	// their reference is missing.
	approved bool
}

func fieldUpdates(ch *domain.SyncChange) (domain.FieldUpdates, error) {
	value := ch.Proposed
	switch {
	case ch.Field == domain.FieldTitle && ch.Kind == domain.KindReference:
		return domain.FieldUpdates{Name: &value}, nil
	case ch.Field == domain.FieldTitle && (ch.Kind == domain.KindChapter || ch.Kind == domain.KindScene):
		return domain.FieldUpdates{Title: &value}, nil
	case ch.Field == domain.FieldSynopsis && ch.Kind == domain.KindScene:
		return domain.FieldUpdates{Synopsis: &value}, nil
	case ch.Field == domain.FieldContent && ch.Kind == domain.KindBeat:
		return domain.FieldUpdates{Content: &value}, nil
	}
	return domain.FieldUpdates{}, fmt.Errorf("%w: %s has no field %q", domain.ErrInvalidInput, ch.Kind, ch.Field)
}

// treeIndex is a lookup view of a persisted tree used during one apply.
type treeIndex struct {
	chapters   map[string]*domain.Chapter
	scenes     map[string]*domain.Scene
	beats      map[string]*domain.Beat
	references map[string]bool

	// positions holds the next free position under each parent id.
	positions map[string]int

	refsBySource map[string]string
}

func indexTree(tree *domain.ProjectTree) *treeIndex {
	ix := &treeIndex{
		chapters:     make(map[string]*domain.Chapter),
		scenes:       make(map[string]*domain.Scene),
		beats:        make(map[string]*domain.Beat),
		references:   make(map[string]bool),
		positions:    make(map[string]int),
		refsBySource: make(map[string]string),
	}
	for i := range tree.Chapters {
		ch := &tree.Chapters[i]
		ix.chapters[ch.ID] = ch
		ix.bump(tree.Project.ID, ch.Position)
		for j := range ch.Scenes {
			sc := &ch.Scenes[j]
			ix.scenes[sc.ID] = sc
			ix.bump(ch.ID, sc.Position)
			for k := range sc.Beats {
				b := &sc.Beats[k]
				ix.beats[b.ID] = b
				ix.bump(sc.ID, b.Position)
			}
		}
	}
	for _, r := range tree.References {
		ix.references[r.ID] = true
		if r.SourceID != nil {
			ix.refsBySource[*r.SourceID] = r.ID
		}
	}
	return ix
}

func (ix *treeIndex) bump(parentID string, position int) {
	if position+1 > ix.positions[parentID] {
		ix.positions[parentID] = position + 1
	}
}

// next returns the position after the parent's current last child.
func (ix *treeIndex) next(parentID string) int {
	p := ix.positions[parentID]
	ix.positions[parentID] = p + 1
	return p
}

// parentOf resolves the parent of a scene or beat addition. ok is false when
// the parent is a new node that was not added in this apply.
func (ix *treeIndex) parentOf(add *domain.SyncAddition, created map[string]string) (id string, ok bool, err error) {
	if add.ParentID != "" {
		var exists bool
		switch add.Kind {
		case domain.KindScene:
			_, exists = ix.chapters[add.ParentID]
		case domain.KindBeat, domain.KindLink:
			_, exists = ix.scenes[add.ParentID]
		}
		if !exists {
			return "", false, fmt.Errorf("%w: parent %s of %s %q no longer exists",
				domain.ErrStalePreview, add.ParentID, add.Kind, add.Title)
		}
		return add.ParentID, true, nil
	}
	id, ok = created[add.ParentKey]
	return id, ok, nil
}

// target checks that a change's node still exists and reports whether it is locked.
func (ix *treeIndex) target(ch *domain.SyncChange) (locked bool, err error) {
	switch ch.Kind {
	case domain.KindChapter:
		if n, ok := ix.chapters[ch.TargetID]; ok {
			return n.Locked, nil
		}
	case domain.KindScene:
		if n, ok := ix.scenes[ch.TargetID]; ok {
			return n.Locked, nil
		}
	case domain.KindBeat:
		if n, ok := ix.beats[ch.TargetID]; ok {
			return n.Locked, nil
		}
	case domain.KindReference:
		if ix.references[ch.TargetID] {
			return false, nil
		}
	default:
		return false, fmt.Errorf("%w: change kind %q", domain.ErrUnsupportedType, ch.Kind)
	}
	return false, fmt.Errorf("%w: %s %s no longer exists", domain.ErrStalePreview, ch.Kind, ch.TargetID)
}

// proseBeneath lists the prose-bearing beats in a node's subtree.
func (ix *treeIndex) proseBeneath(kind domain.ItemKind, id string) []string {
	var ids []string
	collect := func(sc *domain.Scene) {
		for _, b := range sc.Beats {
			if b.Prose != nil {
				ids = append(ids, b.ID)
			}
		}
	}
	switch kind {
	case domain.KindChapter:
		for i := range ix.chapters[id].Scenes {
			collect(&ix.chapters[id].Scenes[i])
		}
	case domain.KindScene:
		collect(ix.scenes[id])
	case domain.KindBeat:
		if ix.beats[id].Prose != nil {
			ids = append(ids, id)
		}
	}
	return ids
}
