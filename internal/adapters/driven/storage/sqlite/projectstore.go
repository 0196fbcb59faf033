package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
)

// Ensure ProjectStore implements the interfaces.
var (
	_ driven.ProjectStore = (*ProjectStore)(nil)
	_ driven.Transactor   = (*ProjectStore)(nil)
)

// ProjectStore implements driven.ProjectStore and driven.Transactor on
// SQLite. Inside WithinTx every call goes through the same *sql.Tx.
type ProjectStore struct {
	store *Store
	q     querier
	inTx  bool
}

// nodeTables maps outline kinds to their tables.
var nodeTables = map[domain.ItemKind]string{
	domain.KindChapter: "chapters",
	domain.KindScene:   "scenes",
	domain.KindBeat:    "beats",
}

// WithinTx runs fn in a database transaction. A nested call joins the
// enclosing transaction.
func (s *ProjectStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store driven.ProjectStore) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(ctx, &ProjectStore{store: s.store, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CreateProject stores a new project.
func (s *ProjectStore) CreateProject(ctx context.Context, project domain.Project) error {
	if project.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.ensureAbsent(ctx, "projects", project.ID); err != nil {
		return err
	}
	stamp(&project.CreatedAt, &project.UpdatedAt)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, project.ID, project.Name, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *ProjectStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects WHERE id = ?
	`, id)

	var p domain.Project
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return &p, nil
}

// ListProjects returns all projects ordered by name.
func (s *ProjectStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.CreatedAt = createdAt.Time
		p.UpdatedAt = updatedAt.Time
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// DeleteProject removes a project. The outline goes with it through
// ON DELETE CASCADE.
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return affectedOne(res)
}

// GetProjectTree assembles the ordered outline of a project.
func (s *ProjectStore) GetProjectTree(ctx context.Context, projectID string) (*domain.ProjectTree, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tree := &domain.ProjectTree{Project: *project}

	chapterIdx := make(map[string]int)
	if err := s.eachRow(ctx, `
		SELECT id, project_id, title, position, archived, locked, source_id, created_at, updated_at
		FROM chapters WHERE project_id = ? ORDER BY position, id
	`, []any{projectID}, func(rows *sql.Rows) error {
		var ch domain.Chapter
		var sourceID sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&ch.ID, &ch.ProjectID, &ch.Title, &ch.Position,
			&ch.Archived, &ch.Locked, &sourceID, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scanning chapter: %w", err)
		}
		ch.SourceID = stringPtr(sourceID)
		ch.CreatedAt = createdAt.Time
		ch.UpdatedAt = updatedAt.Time
		chapterIdx[ch.ID] = len(tree.Chapters)
		tree.Chapters = append(tree.Chapters, ch)
		return nil
	}); err != nil {
		return nil, err
	}

	type loc struct{ chapter, scene int }
	sceneIdx := make(map[string]loc)
	if err := s.eachRow(ctx, `
		SELECT s.id, s.chapter_id, s.title, s.synopsis, s.position, s.archived, s.locked,
			s.source_id, s.created_at, s.updated_at
		FROM scenes s JOIN chapters c ON c.id = s.chapter_id
		WHERE c.project_id = ? ORDER BY s.chapter_id, s.position, s.id
	`, []any{projectID}, func(rows *sql.Rows) error {
		var sc domain.Scene
		var sourceID sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&sc.ID, &sc.ChapterID, &sc.Title, &sc.Synopsis, &sc.Position,
			&sc.Archived, &sc.Locked, &sourceID, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scanning scene: %w", err)
		}
		sc.SourceID = stringPtr(sourceID)
		sc.CreatedAt = createdAt.Time
		sc.UpdatedAt = updatedAt.Time
		ci := chapterIdx[sc.ChapterID]
		sceneIdx[sc.ID] = loc{chapter: ci, scene: len(tree.Chapters[ci].Scenes)}
		tree.Chapters[ci].Scenes = append(tree.Chapters[ci].Scenes, sc)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.eachRow(ctx, `
		SELECT b.id, b.scene_id, b.content, b.prose, b.position, b.archived, b.locked,
			b.source_id, b.created_at, b.updated_at
		FROM beats b
		JOIN scenes s ON s.id = b.scene_id
		JOIN chapters c ON c.id = s.chapter_id
		WHERE c.project_id = ? ORDER BY b.scene_id, b.position, b.id
	`, []any{projectID}, func(rows *sql.Rows) error {
		var b domain.Beat
		var prose, sourceID sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.SceneID, &b.Content, &prose, &b.Position,
			&b.Archived, &b.Locked, &sourceID, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scanning beat: %w", err)
		}
		b.Prose = stringPtr(prose)
		b.SourceID = stringPtr(sourceID)
		b.CreatedAt = createdAt.Time
		b.UpdatedAt = updatedAt.Time
		l := sceneIdx[b.SceneID]
		sc := &tree.Chapters[l.chapter].Scenes[l.scene]
		sc.Beats = append(sc.Beats, b)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.eachRow(ctx, `
		SELECT sr.scene_id, sr.reference_id, sr.source_id
		FROM scene_references sr
		JOIN scenes s ON s.id = sr.scene_id
		JOIN chapters c ON c.id = s.chapter_id
		WHERE c.project_id = ? ORDER BY sr.scene_id, sr.reference_id
	`, []any{projectID}, func(rows *sql.Rows) error {
		var sceneID, refID string
		var sourceID sql.NullString
		if err := rows.Scan(&sceneID, &refID, &sourceID); err != nil {
			return fmt.Errorf("scanning scene reference: %w", err)
		}
		l := sceneIdx[sceneID]
		sc := &tree.Chapters[l.chapter].Scenes[l.scene]
		sc.ReferenceIDs = append(sc.ReferenceIDs, refID)
		sc.Links = append(sc.Links, domain.SceneLink{ReferenceID: refID, SourceID: stringPtr(sourceID)})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.eachRow(ctx, `
		SELECT id, project_id, kind, name, attributes, source_id, created_at, updated_at
		FROM story_references WHERE project_id = ? ORDER BY kind, name, id
	`, []any{projectID}, func(rows *sql.Rows) error {
		var r domain.Reference
		var attrsJSON string
		var sourceID sql.NullString
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Kind, &r.Name, &attrsJSON,
			&sourceID, &createdAt, &updatedAt); err != nil {
			return fmt.Errorf("scanning reference: %w", err)
		}
		if err := json.Unmarshal([]byte(attrsJSON), &r.Attributes); err != nil {
			return fmt.Errorf("unmarshaling attributes: %w", err)
		}
		if len(r.Attributes) == 0 {
			r.Attributes = nil
		}
		r.SourceID = stringPtr(sourceID)
		r.CreatedAt = createdAt.Time
		r.UpdatedAt = updatedAt.Time
		tree.References = append(tree.References, r)
		return nil
	}); err != nil {
		return nil, err
	}

	return tree, nil
}

// CreateChapter stores a chapter under chapter.ProjectID.
func (s *ProjectStore) CreateChapter(ctx context.Context, chapter domain.Chapter) error {
	if chapter.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.ensureParent(ctx, "projects", "project", chapter.ProjectID); err != nil {
		return err
	}
	if err := s.ensureAbsent(ctx, "chapters", chapter.ID); err != nil {
		return err
	}
	stamp(&chapter.CreatedAt, &chapter.UpdatedAt)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO chapters (id, project_id, title, position, archived, locked, source_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, chapter.ID, chapter.ProjectID, chapter.Title, chapter.Position,
		boolToInt(chapter.Archived), boolToInt(chapter.Locked), nullString(chapter.SourceID),
		chapter.CreatedAt, chapter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating chapter: %w", err)
	}
	return nil
}

// CreateScene stores a scene under scene.ChapterID.
func (s *ProjectStore) CreateScene(ctx context.Context, scene domain.Scene) error {
	if scene.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.ensureParent(ctx, "chapters", "chapter", scene.ChapterID); err != nil {
		return err
	}
	if err := s.ensureAbsent(ctx, "scenes", scene.ID); err != nil {
		return err
	}
	stamp(&scene.CreatedAt, &scene.UpdatedAt)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO scenes (id, chapter_id, title, synopsis, position, archived, locked, source_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scene.ID, scene.ChapterID, scene.Title, scene.Synopsis, scene.Position,
		boolToInt(scene.Archived), boolToInt(scene.Locked), nullString(scene.SourceID),
		scene.CreatedAt, scene.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating scene: %w", err)
	}
	return nil
}

// CreateBeat stores a beat under beat.SceneID.
func (s *ProjectStore) CreateBeat(ctx context.Context, beat domain.Beat) error {
	if beat.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.ensureParent(ctx, "scenes", "scene", beat.SceneID); err != nil {
		return err
	}
	if err := s.ensureAbsent(ctx, "beats", beat.ID); err != nil {
		return err
	}
	stamp(&beat.CreatedAt, &beat.UpdatedAt)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO beats (id, scene_id, content, prose, position, archived, locked, source_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, beat.ID, beat.SceneID, beat.Content, nullString(beat.Prose), beat.Position,
		boolToInt(beat.Archived), boolToInt(beat.Locked), nullString(beat.SourceID),
		beat.CreatedAt, beat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating beat: %w", err)
	}
	return nil
}

// CreateReference stores a reference under ref.ProjectID.
func (s *ProjectStore) CreateReference(ctx context.Context, ref domain.Reference) error {
	if ref.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := s.ensureParent(ctx, "projects", "project", ref.ProjectID); err != nil {
		return err
	}
	if err := s.ensureAbsent(ctx, "story_references", ref.ID); err != nil {
		return err
	}
	stamp(&ref.CreatedAt, &ref.UpdatedAt)

	attrs := ref.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO story_references (id, project_id, kind, name, attributes, source_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ref.ID, ref.ProjectID, string(ref.Kind), ref.Name, string(attrsJSON),
		nullString(ref.SourceID), ref.CreatedAt, ref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating reference: %w", err)
	}
	return nil
}

// LinkSceneReference associates a scene with a reference. Relinking keeps
// the first source id unless it was unset.
func (s *ProjectStore) LinkSceneReference(ctx context.Context, sceneID, referenceID string, sourceID *string) error {
	if err := s.ensureParent(ctx, "scenes", "scene", sceneID); err != nil {
		return err
	}
	if err := s.ensureParent(ctx, "story_references", "reference", referenceID); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO scene_references (scene_id, reference_id, source_id) VALUES (?, ?, ?)
		ON CONFLICT(scene_id, reference_id) DO UPDATE SET
			source_id = COALESCE(scene_references.source_id, excluded.source_id)
	`, sceneID, referenceID, nullString(sourceID))
	if err != nil {
		return fmt.Errorf("linking scene reference: %w", err)
	}
	return nil
}

// UpdateChapter writes the set fields of a chapter.
func (s *ProjectStore) UpdateChapter(ctx context.Context, id string, updates domain.FieldUpdates) error {
	return s.update(ctx, "chapters", id, map[string]*string{"title": updates.Title})
}

// UpdateScene writes the set fields of a scene.
func (s *ProjectStore) UpdateScene(ctx context.Context, id string, updates domain.FieldUpdates) error {
	return s.update(ctx, "scenes", id, map[string]*string{
		"title":    updates.Title,
		"synopsis": updates.Synopsis,
	})
}

// UpdateBeat writes the set fields of a beat.
func (s *ProjectStore) UpdateBeat(ctx context.Context, id string, updates domain.FieldUpdates) error {
	return s.update(ctx, "beats", id, map[string]*string{"content": updates.Content})
}

// UpdateReference writes the set fields of a reference.
func (s *ProjectStore) UpdateReference(ctx context.Context, id string, updates domain.FieldUpdates) error {
	return s.update(ctx, "story_references", id, map[string]*string{"name": updates.Name})
}

// SetBeatProse stores the writer's prose for a beat.
func (s *ProjectStore) SetBeatProse(ctx context.Context, beatID string, prose *string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE beats SET prose = ?, updated_at = ? WHERE id = ?
	`, nullString(prose), time.Now().UTC(), beatID)
	if err != nil {
		return fmt.Errorf("setting prose: %w", err)
	}
	return affectedOne(res)
}

// SetArchived sets the archived flag of a chapter, scene or beat.
func (s *ProjectStore) SetArchived(ctx context.Context, kind domain.ItemKind, id string, archived bool) error {
	return s.setColumn(ctx, kind, id, "archived", boolToInt(archived))
}

// SetLocked sets the locked flag of a chapter, scene or beat.
func (s *ProjectStore) SetLocked(ctx context.Context, kind domain.ItemKind, id string, locked bool) error {
	return s.setColumn(ctx, kind, id, "locked", boolToInt(locked))
}

// SetPosition stores the position of a chapter, scene or beat.
func (s *ProjectStore) SetPosition(ctx context.Context, kind domain.ItemKind, id string, position int) error {
	return s.setColumn(ctx, kind, id, "position", position)
}

// setColumn writes one integer column of an outline node. column is
// always one of our own literals.
func (s *ProjectStore) setColumn(ctx context.Context, kind domain.ItemKind, id, column string, value int) error {
	table, ok := nodeTables[kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedType, kind)
	}

	res, err := s.q.ExecContext(ctx,
		"UPDATE "+table+" SET "+column+" = ?, updated_at = ? WHERE id = ?",
		value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("setting %s %s: %w", kind, column, err)
	}
	return affectedOne(res)
}

// update writes the non-nil fields plus updated_at.
func (s *ProjectStore) update(ctx context.Context, table, id string, fields map[string]*string) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	for _, column := range []string{"title", "synopsis", "content", "name"} {
		if v, ok := fields[column]; ok && v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	args = append(args, id)

	res, err := s.q.ExecContext(ctx,
		"UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}
	return affectedOne(res)
}

// eachRow runs a query and hands every row to fn.
func (s *ProjectStore) eachRow(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying outline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating outline: %w", err)
	}
	return nil
}

func (s *ProjectStore) exists(ctx context.Context, table, id string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *ProjectStore) ensureAbsent(ctx context.Context, table, id string) error {
	found, err := s.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if found {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *ProjectStore) ensureParent(ctx context.Context, table, label, id string) error {
	found, err := s.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %s: %w", label, id, domain.ErrNotFound)
	}
	return nil
}

// affectedOne maps a zero-row write to domain.ErrNotFound.
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
