package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// Diff compares a freshly parsed document with the persisted outline and
// proposes additions and field changes. It never writes and never proposes
// deletions: persisted nodes missing from the parse are left out.
func Diff(ctx context.Context, parsed *domain.ParsedProject, tree *domain.ProjectTree) (*domain.SyncPreview, error) {
	if parsed == nil || tree == nil {
		return nil, fmt.Errorf("%w: diff needs a parsed document and a tree", domain.ErrInvalidInput)
	}

	d := &differ{
		preview: &domain.SyncPreview{
			ProjectID: tree.Project.ID,
			Format:    parsed.Format,
		},
		parsed:   parsed,
		refs:     make(map[string]string),
		refNames: make(map[string]string),
	}
	for _, r := range tree.References {
		if r.SourceID != nil {
			d.refs[*r.SourceID] = r.ID
		}
	}
	for _, r := range parsed.References {
		if r.SourceID != nil {
			d.refNames[*r.SourceID] = r.Name
		}
	}

	chapters := NewResolver(chapterCandidates(tree.Chapters))
	var unmatched []Identity
	for ci := range parsed.Chapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pc := &parsed.Chapters[ci]
		key := fmt.Sprintf("c%d", ci)
		node := Identity{Title: pc.Title, Position: ci, SourceID: pc.SourceID}

		res := chapters.Resolve(node)
		d.noteAmbiguity(res, domain.KindChapter, pc.Title)
		if !res.Matched() {
			d.addChapter(key, pc, tree.Project.Name)
			if node.SourceID == nil {
				unmatched = append(unmatched, node)
			}
			continue
		}

		ch := findChapter(tree, res.ID)
		if !ch.Locked {
			d.change(domain.KindChapter, ch.ID, domain.FieldTitle, ch.Title, pc.Title)
		}
		d.diffScenes(key, pc, ch)
	}
	d.flagRenames(chapters, domain.KindChapter, unmatched)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.diffReferences(parsed.References, tree.References)

	return d.preview, nil
}

type differ struct {
	preview *domain.SyncPreview
	parsed  *domain.ParsedProject

	// refs maps persisted reference source ids to reference ids.
	refs map[string]string

	// refNames maps parsed reference source ids to names.
	refNames map[string]string
}

func (d *differ) diffScenes(chapterKey string, pc *domain.ParsedChapter, ch *domain.Chapter) {
	scenes := NewResolver(sceneCandidates(ch.Scenes))
	var unmatched []Identity
	for si := range pc.Scenes {
		ps := &pc.Scenes[si]
		key := fmt.Sprintf("%s.s%d", chapterKey, si)
		node := Identity{Title: ps.Title, Position: si, SourceID: ps.SourceID}

		res := scenes.Resolve(node)
		d.noteAmbiguity(res, domain.KindScene, ps.Title)
		if !res.Matched() {
			d.addScene(key, ps, domain.SyncAddition{ParentID: ch.ID, ParentTitle: ch.Title})
			if node.SourceID == nil {
				unmatched = append(unmatched, node)
			}
			continue
		}

		sc := findScene(ch, res.ID)
		if !sc.Locked {
			d.change(domain.KindScene, sc.ID, domain.FieldTitle, sc.Title, ps.Title)
			d.change(domain.KindScene, sc.ID, domain.FieldSynopsis, sc.Synopsis, ps.Synopsis)
		}
		d.diffBeats(key, ps, sc)
		d.diffLinks(key, ps, sc)
	}
	d.flagRenames(scenes, domain.KindScene, unmatched)
}

func (d *differ) diffBeats(sceneKey string, ps *domain.ParsedScene, sc *domain.Scene) {
	beats := NewResolver(beatCandidates(sc.Beats))
	var unmatched []Identity
	for bi := range ps.Beats {
		pb := &ps.Beats[bi]
		node := Identity{Title: pb.Content, Position: bi, SourceID: pb.SourceID}

		res := beats.Resolve(node)
		d.noteAmbiguity(res, domain.KindBeat, pb.Content)
		if !res.Matched() {
			d.addBeat(fmt.Sprintf("%s.b%d", sceneKey, bi), pb, domain.SyncAddition{ParentID: sc.ID, ParentTitle: sc.Title})
			if node.SourceID == nil {
				unmatched = append(unmatched, node)
			}
			continue
		}

		b := findBeat(sc, res.ID)
		if !b.Locked {
			d.change(domain.KindBeat, b.ID, domain.FieldContent, b.Content, pb.Content)
		}
	}
	d.flagRenames(beats, domain.KindBeat, unmatched)
}

// diffLinks proposes links the source records for a matched scene that the
// persisted scene lacks. Links to references absent from both the source
// and the store are ignored; existing links are never removed.
func (d *differ) diffLinks(sceneKey string, ps *domain.ParsedScene, sc *domain.Scene) {
	for li, assoc := range d.links(ps) {
		if d.linked(sc, assoc) {
			continue
		}
		d.preview.Additions = append(d.preview.Additions, domain.SyncAddition{
			Key:         fmt.Sprintf("%s.l%d", sceneKey, li),
			Kind:        domain.KindLink,
			Title:       d.refTitle(assoc.ReferenceSourceID),
			ParentTitle: sc.Title,
			ParentID:    sc.ID,
			SourceID:    assoc.SourceID,
			Links:       []domain.ParsedAssociation{assoc},
		})
	}
}

// links returns a scene's associations to known references, without duplicates.
func (d *differ) links(ps *domain.ParsedScene) []domain.ParsedAssociation {
	var out []domain.ParsedAssociation
	seen := make(map[string]bool, len(ps.ReferenceIDs))
	for _, ref := range ps.ReferenceIDs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		_, persisted := d.refs[ref]
		_, parsed := d.refNames[ref]
		if !persisted && !parsed {
			continue
		}
		out = append(out, d.parsed.Association(ps.SourceID, ref))
	}
	return out
}

// linked reports whether the scene already carries the association, either
// by its source id or by a link to the same reference.
func (d *differ) linked(sc *domain.Scene, assoc domain.ParsedAssociation) bool {
	refID, persisted := d.refs[assoc.ReferenceSourceID]
	for _, l := range sc.Links {
		if domain.SameSourceID(l.SourceID, assoc.SourceID) || (persisted && l.ReferenceID == refID) {
			return true
		}
	}
	return false
}

func (d *differ) refTitle(sourceID string) string {
	if name, ok := d.refNames[sourceID]; ok && name != "" {
		return name
	}
	return sourceID
}

func (d *differ) diffReferences(parsed []domain.ParsedReference, persisted []domain.Reference) {
	candidates := make([]Candidate, len(persisted))
	for i, r := range persisted {
		candidates[i] = Candidate{ID: r.ID, Title: r.Name, Position: i, SourceID: r.SourceID}
	}
	refs := NewResolver(candidates)

	for ri := range parsed {
		pr := &parsed[ri]
		res := refs.Resolve(Identity{Title: pr.Name, Position: ri, SourceID: pr.SourceID})
		d.noteAmbiguity(res, domain.KindReference, pr.Name)
		if !res.Matched() {
			d.preview.Additions = append(d.preview.Additions, domain.SyncAddition{
				Key:           fmt.Sprintf("r%d", ri),
				Kind:          domain.KindReference,
				Title:         pr.Name,
				ReferenceKind: pr.Kind,
				Attributes:    pr.Attributes,
				SourceID:      pr.SourceID,
			})
			continue
		}
		for _, r := range persisted {
			if r.ID == res.ID {
				d.change(domain.KindReference, r.ID, domain.FieldTitle, r.Name, pr.Name)
				break
			}
		}
	}
}

// addChapter records a chapter addition and its whole subtree.
func (d *differ) addChapter(key string, pc *domain.ParsedChapter, projectName string) {
	d.preview.Additions = append(d.preview.Additions, domain.SyncAddition{
		Key:         key,
		Kind:        domain.KindChapter,
		Title:       pc.Title,
		ParentTitle: projectName,
		SourceID:    pc.SourceID,
	})
	for si := range pc.Scenes {
		d.addScene(fmt.Sprintf("%s.s%d", key, si), &pc.Scenes[si], domain.SyncAddition{ParentKey: key, ParentTitle: pc.Title})
	}
}

func (d *differ) addScene(key string, ps *domain.ParsedScene, parent domain.SyncAddition) {
	d.preview.Additions = append(d.preview.Additions, domain.SyncAddition{
		Key:         key,
		Kind:        domain.KindScene,
		Title:       ps.Title,
		ParentTitle: parent.ParentTitle,
		ParentID:    parent.ParentID,
		ParentKey:   parent.ParentKey,
		Synopsis:    ps.Synopsis,
		SourceID:    ps.SourceID,
		Links:       d.links(ps),
	})
	for bi := range ps.Beats {
		d.addBeat(fmt.Sprintf("%s.b%d", key, bi), &ps.Beats[bi], domain.SyncAddition{ParentKey: key, ParentTitle: ps.Title})
	}
}

func (d *differ) addBeat(key string, pb *domain.ParsedBeat, parent domain.SyncAddition) {
	d.preview.Additions = append(d.preview.Additions, domain.SyncAddition{
		Key:         key,
		Kind:        domain.KindBeat,
		Title:       pb.Content,
		ParentTitle: parent.ParentTitle,
		ParentID:    parent.ParentID,
		ParentKey:   parent.ParentKey,
		Content:     pb.Content,
		SourceID:    pb.SourceID,
	})
}

// change records a field change when the values differ.
func (d *differ) change(kind domain.ItemKind, id string, field domain.ChangeField, current, proposed string) {
	if current == proposed {
		return
	}
	d.preview.Changes = append(d.preview.Changes, domain.SyncChange{
		Key:      changeKey(kind, id, field),
		Kind:     kind,
		Field:    field,
		Current:  current,
		Proposed: proposed,
		TargetID: id,
	})
}

func (d *differ) noteAmbiguity(res Resolution, kind domain.ItemKind, title string) {
	if !res.Ambiguous {
		return
	}
	d.preview.Warnings = append(d.preview.Warnings, domain.SyncWarning{
		Kind:     domain.WarningAmbiguousMatch,
		ItemKind: kind,
		Title:    title,
		Message:  fmt.Sprintf("%d %ss are titled %q and none is at the same position; matched the first", res.Tied, kind, title),
	})
}

// flagRenames warns about additions that sit where an unmatched persisted
// sibling is. They stay additions.
func (d *differ) flagRenames(r *Resolver, kind domain.ItemKind, unmatched []Identity) {
	for _, node := range unmatched {
		old, ok := r.UnclaimedAt(node.Position)
		if !ok {
			continue
		}
		d.preview.Warnings = append(d.preview.Warnings, domain.SyncWarning{
			Kind:     domain.WarningPossibleRename,
			ItemKind: kind,
			Title:    node.Title,
			Message:  fmt.Sprintf("new %s %q is where %q was; a rename is added as new and the old %s is kept", kind, node.Title, old.Title, kind),
		})
	}
}

func changeKey(kind domain.ItemKind, id string, field domain.ChangeField) string {
	return fmt.Sprintf("%s:%s:%s", kind, id, field)
}

func chapterCandidates(chapters []domain.Chapter) []Candidate {
	out := make([]Candidate, len(chapters))
	for i, c := range chapters {
		out[i] = Candidate{ID: c.ID, Title: c.Title, Position: c.Position, SourceID: c.SourceID}
	}
	return out
}

func sceneCandidates(scenes []domain.Scene) []Candidate {
	out := make([]Candidate, len(scenes))
	for i, s := range scenes {
		out[i] = Candidate{ID: s.ID, Title: s.Title, Position: s.Position, SourceID: s.SourceID}
	}
	return out
}

func beatCandidates(beats []domain.Beat) []Candidate {
	out := make([]Candidate, len(beats))
	for i, b := range beats {
		out[i] = Candidate{ID: b.ID, Title: b.Content, Position: b.Position, SourceID: b.SourceID}
	}
	return out
}

func findChapter(tree *domain.ProjectTree, id string) *domain.Chapter {
	for i := range tree.Chapters {
		if tree.Chapters[i].ID == id {
			return &tree.Chapters[i]
		}
	}
	return nil
}

func findScene(ch *domain.Chapter, id string) *domain.Scene {
	for i := range ch.Scenes {
		if ch.Scenes[i].ID == id {
			return &ch.Scenes[i]
		}
	}
	return nil
}

func findBeat(sc *domain.Scene, id string) *domain.Beat {
	for i := range sc.Beats {
		if sc.Beats[i].ID == id {
			return &sc.Beats[i]
		}
	}
	return nil
}
