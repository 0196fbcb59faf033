package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Ensure ProjectStore implements the interfaces.
var (
	_ driven.ProjectStore = (*ProjectStore)(nil)
	_ driven.Transactor   = (*ProjectStore)(nil)
)

// ProjectStore is an in-memory implementation of driven.ProjectStore.
// Transactions snapshot the whole store and restore it on error.
type ProjectStore struct {
	mu   sync.RWMutex
	data storeData

	// txMu serialises transactions.
	txMu sync.Mutex
}

type storeData struct {
	projects   map[string]domain.Project
	chapters   map[string]domain.Chapter
	scenes     map[string]domain.Scene
	beats      map[string]domain.Beat
	references map[string]domain.Reference
	// links maps scene id to reference id to the link's source id.
	links map[string]map[string]*string
}

func newStoreData() storeData {
	return storeData{
		projects:   make(map[string]domain.Project),
		chapters:   make(map[string]domain.Chapter),
		scenes:     make(map[string]domain.Scene),
		beats:      make(map[string]domain.Beat),
		references: make(map[string]domain.Reference),
		links:      make(map[string]map[string]*string),
	}
}

// clone deep-copies the maps. Entities are values; attribute maps and
// prose pointers are copied too.
func (d storeData) clone() storeData {
	c := newStoreData()
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.chapters {
		c.chapters[k] = v
	}
	for k, v := range d.scenes {
		c.scenes[k] = v
	}
	for k, v := range d.beats {
		v.Prose = copyString(v.Prose)
		c.beats[k] = v
	}
	for k, v := range d.references {
		v.Attributes = copyAttrs(v.Attributes)
		c.references[k] = v
	}
	for k, v := range d.links {
		m := make(map[string]*string, len(v))
		for r, src := range v {
			m[r] = copyString(src)
		}
		c.links[k] = m
	}
	return c
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{data: newStoreData()}
}

// WithinTx runs fn against this store. If fn fails, every write it made is undone.
func (s *ProjectStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store driven.ProjectStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// CreateProject stores a new project.
func (s *ProjectStore) CreateProject(_ context.Context, project domain.Project) error {
	if project.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.projects[project.ID]; ok {
		return domain.ErrAlreadyExists
	}
	stamp(&project.CreatedAt, &project.UpdatedAt)
	s.data.projects[project.ID] = project
	return nil
}

// GetProject retrieves a project by ID.
func (s *ProjectStore) GetProject(_ context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// ListProjects returns all projects ordered by name.
func (s *ProjectStore) ListProjects(_ context.Context) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Project, 0, len(s.data.projects))
	for _, p := range s.data.projects {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteProject removes a project and everything beneath it.
func (s *ProjectStore) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.projects[id]; !ok {
		return domain.ErrNotFound
	}
	for cid, ch := range s.data.chapters {
		if ch.ProjectID != id {
			continue
		}
		for sid, sc := range s.data.scenes {
			if sc.ChapterID != cid {
				continue
			}
			for bid, b := range s.data.beats {
				if b.SceneID == sid {
					delete(s.data.beats, bid)
				}
			}
			delete(s.data.links, sid)
			delete(s.data.scenes, sid)
		}
		delete(s.data.chapters, cid)
	}
	for rid, r := range s.data.references {
		if r.ProjectID == id {
			delete(s.data.references, rid)
		}
	}
	delete(s.data.projects, id)
	return nil
}

// GetProjectTree assembles the ordered outline of a project.
func (s *ProjectStore) GetProjectTree(_ context.Context, projectID string) (*domain.ProjectTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	tree := &domain.ProjectTree{Project: p}

	for _, ch := range s.data.chapters {
		if ch.ProjectID != projectID {
			continue
		}
		ch.SourceID = copyString(ch.SourceID)
		ch.Scenes = nil
		for _, sc := range s.data.scenes {
			if sc.ChapterID != ch.ID {
				continue
			}
			sc.SourceID = copyString(sc.SourceID)
			sc.Beats = nil
			for _, b := range s.data.beats {
				if b.SceneID == sc.ID {
					b.Prose = copyString(b.Prose)
					b.SourceID = copyString(b.SourceID)
					sc.Beats = append(sc.Beats, b)
				}
			}
			sort.Slice(sc.Beats, func(i, j int) bool { return sc.Beats[i].Position < sc.Beats[j].Position })
			sc.ReferenceIDs = nil
			sc.Links = nil
			for rid := range s.data.links[sc.ID] {
				sc.ReferenceIDs = append(sc.ReferenceIDs, rid)
			}
			sort.Strings(sc.ReferenceIDs)
			for _, rid := range sc.ReferenceIDs {
				sc.Links = append(sc.Links, domain.SceneLink{
					ReferenceID: rid,
					SourceID:    copyString(s.data.links[sc.ID][rid]),
				})
			}
			ch.Scenes = append(ch.Scenes, sc)
		}
		sort.Slice(ch.Scenes, func(i, j int) bool { return ch.Scenes[i].Position < ch.Scenes[j].Position })
		tree.Chapters = append(tree.Chapters, ch)
	}
	sort.Slice(tree.Chapters, func(i, j int) bool { return tree.Chapters[i].Position < tree.Chapters[j].Position })

	for _, r := range s.data.references {
		if r.ProjectID == projectID {
			r.Attributes = copyAttrs(r.Attributes)
			r.SourceID = copyString(r.SourceID)
			tree.References = append(tree.References, r)
		}
	}
	sort.Slice(tree.References, func(i, j int) bool {
		a, b := tree.References[i], tree.References[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return tree, nil
}

// CreateChapter stores a chapter under chapter.ProjectID.
func (s *ProjectStore) CreateChapter(_ context.Context, chapter domain.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chapter.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, ok := s.data.projects[chapter.ProjectID]; !ok {
		return fmt.Errorf("project %s: %w", chapter.ProjectID, domain.ErrNotFound)
	}
	if _, ok := s.data.chapters[chapter.ID]; ok {
		return domain.ErrAlreadyExists
	}
	chapter.Scenes = nil
	chapter.SourceID = copyString(chapter.SourceID)
	stamp(&chapter.CreatedAt, &chapter.UpdatedAt)
	s.data.chapters[chapter.ID] = chapter
	return nil
}

// CreateScene stores a scene under scene.ChapterID.
func (s *ProjectStore) CreateScene(_ context.Context, scene domain.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scene.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, ok := s.data.chapters[scene.ChapterID]; !ok {
		return fmt.Errorf("chapter %s: %w", scene.ChapterID, domain.ErrNotFound)
	}
	if _, ok := s.data.scenes[scene.ID]; ok {
		return domain.ErrAlreadyExists
	}
	scene.Beats = nil
	scene.ReferenceIDs = nil
	scene.Links = nil
	scene.SourceID = copyString(scene.SourceID)
	stamp(&scene.CreatedAt, &scene.UpdatedAt)
	s.data.scenes[scene.ID] = scene
	return nil
}

// CreateBeat stores a beat under beat.SceneID.
func (s *ProjectStore) CreateBeat(_ context.Context, beat domain.Beat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if beat.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, ok := s.data.scenes[beat.SceneID]; !ok {
		return fmt.Errorf("scene %s: %w", beat.SceneID, domain.ErrNotFound)
	}
	if _, ok := s.data.beats[beat.ID]; ok {
		return domain.ErrAlreadyExists
	}
	beat.Prose = copyString(beat.Prose)
	beat.SourceID = copyString(beat.SourceID)
	stamp(&beat.CreatedAt, &beat.UpdatedAt)
	s.data.beats[beat.ID] = beat
	return nil
}

// CreateReference stores a reference under ref.ProjectID.
func (s *ProjectStore) CreateReference(_ context.Context, ref domain.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, ok := s.data.projects[ref.ProjectID]; !ok {
		return fmt.Errorf("project %s: %w", ref.ProjectID, domain.ErrNotFound)
	}
	if _, ok := s.data.references[ref.ID]; ok {
		return domain.ErrAlreadyExists
	}
	ref.Attributes = copyAttrs(ref.Attributes)
	ref.SourceID = copyString(ref.SourceID)
	stamp(&ref.CreatedAt, &ref.UpdatedAt)
	s.data.references[ref.ID] = ref
	return nil
}

// LinkSceneReference associates a scene with a reference. Relinking keeps
// the first source id unless it was unset.
func (s *ProjectStore) LinkSceneReference(_ context.Context, sceneID, referenceID string, sourceID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.scenes[sceneID]; !ok {
		return fmt.Errorf("scene %s: %w", sceneID, domain.ErrNotFound)
	}
	if _, ok := s.data.references[referenceID]; !ok {
		return fmt.Errorf("reference %s: %w", referenceID, domain.ErrNotFound)
	}
	if s.data.links[sceneID] == nil {
		s.data.links[sceneID] = make(map[string]*string)
	}
	if existing, ok := s.data.links[sceneID][referenceID]; ok && existing != nil {
		return nil
	}
	s.data.links[sceneID][referenceID] = copyString(sourceID)
	return nil
}

// UpdateChapter writes the set fields of a chapter.
func (s *ProjectStore) UpdateChapter(_ context.Context, id string, updates domain.FieldUpdates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.data.chapters[id]
	if !ok {
		return domain.ErrNotFound
	}
	if updates.Title != nil {
		ch.Title = *updates.Title
	}
	ch.UpdatedAt = time.Now()
	s.data.chapters[id] = ch
	return nil
}

// UpdateScene writes the set fields of a scene.
func (s *ProjectStore) UpdateScene(_ context.Context, id string, updates domain.FieldUpdates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.data.scenes[id]
	if !ok {
		return domain.ErrNotFound
	}
	if updates.Title != nil {
		sc.Title = *updates.Title
	}
	if updates.Synopsis != nil {
		sc.Synopsis = *updates.Synopsis
	}
	sc.UpdatedAt = time.Now()
	s.data.scenes[id] = sc
	return nil
}

// UpdateBeat writes the set fields of a beat.
func (s *ProjectStore) UpdateBeat(_ context.Context, id string, updates domain.FieldUpdates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.beats[id]
	if !ok {
		return domain.ErrNotFound
	}
	if updates.Content != nil {
		b.Content = *updates.Content
	}
	b.UpdatedAt = time.Now()
	s.data.beats[id] = b
	return nil
}

// UpdateReference writes the set fields of a reference.
func (s *ProjectStore) UpdateReference(_ context.Context, id string, updates domain.FieldUpdates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.references[id]
	if !ok {
		return domain.ErrNotFound
	}
	if updates.Name != nil {
		r.Name = *updates.Name
	}
	r.UpdatedAt = time.Now()
	s.data.references[id] = r
	return nil
}

// SetBeatProse stores the writer's prose for a beat.
func (s *ProjectStore) SetBeatProse(_ context.Context, beatID string, prose *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.beats[beatID]
	if !ok {
		return domain.ErrNotFound
	}
	b.Prose = copyString(prose)
	b.UpdatedAt = time.Now()
	s.data.beats[beatID] = b
	return nil
}

// SetArchived sets the archived flag of a chapter, scene or beat.
func (s *ProjectStore) SetArchived(_ context.Context, kind domain.ItemKind, id string, archived bool) error {
	return s.setFlags(kind, id, func(archivedFlag, _ *bool, _ *int) { *archivedFlag = archived })
}

// SetLocked sets the locked flag of a chapter, scene or beat.
func (s *ProjectStore) SetLocked(_ context.Context, kind domain.ItemKind, id string, locked bool) error {
	return s.setFlags(kind, id, func(_, lockedFlag *bool, _ *int) { *lockedFlag = locked })
}

// SetPosition stores the position of a chapter, scene or beat.
func (s *ProjectStore) SetPosition(_ context.Context, kind domain.ItemKind, id string, position int) error {
	return s.setFlags(kind, id, func(_, _ *bool, pos *int) { *pos = position })
}

// setFlags applies fn to the archived, locked and position fields of a node.
func (s *ProjectStore) setFlags(kind domain.ItemKind, id string, fn func(archived, locked *bool, position *int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case domain.KindChapter:
		ch, ok := s.data.chapters[id]
		if !ok {
			return domain.ErrNotFound
		}
		fn(&ch.Archived, &ch.Locked, &ch.Position)
		ch.UpdatedAt = time.Now()
		s.data.chapters[id] = ch
	case domain.KindScene:
		sc, ok := s.data.scenes[id]
		if !ok {
			return domain.ErrNotFound
		}
		fn(&sc.Archived, &sc.Locked, &sc.Position)
		sc.UpdatedAt = time.Now()
		s.data.scenes[id] = sc
	case domain.KindBeat:
		b, ok := s.data.beats[id]
		if !ok {
			return domain.ErrNotFound
		}
		fn(&b.Archived, &b.Locked, &b.Position)
		b.UpdatedAt = time.Now()
		s.data.beats[id] = b
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, kind)
	}
	return nil
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyAttrs(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
