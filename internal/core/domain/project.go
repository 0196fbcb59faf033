package domain

import "time"

// Project is a persisted outline.
type Project struct {
	// ID is the unique identifier for the project.
	ID string

	// Name is the human-readable name.
	Name string

	// CreatedAt is when the project was created.
	CreatedAt time.Time

	// UpdatedAt is when the project was last changed.
	UpdatedAt time.Time
}

// Chapter is a persisted chapter.
type Chapter struct {
	ID        string
	ProjectID string
	Title     string

	// Position is 0-indexed and unique among the project's chapters.
	Position int

	Archived bool
	Locked   bool

	// SourceID is used only for reimport matching.
	SourceID *string

	// Scenes are ordered by Position.
	Scenes []Scene

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scene is a persisted scene.
type Scene struct {
	ID        string
	ChapterID string
	Title     string
	Synopsis  string

	// Position is 0-indexed and unique within the chapter.
	Position int

	Archived bool
	Locked   bool

	// SourceID is used only for reimport matching.
	SourceID *string

	// Beats are ordered by Position.
	Beats []Beat

	// ReferenceIDs are the persisted ids of linked references.
	ReferenceIDs []string

	// Links are the same links with the source id each was imported under.
	Links []SceneLink

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SceneLink is a persisted link from a scene to a reference.
type SceneLink struct {
	ReferenceID string

	// SourceID is the association's native identifier, nil for links made
	// by hand or by formats without one.
	SourceID *string
}

// Beat is a persisted beat.
type Beat struct {
	ID      string
	SceneID string
	Content string

	// Prose is owned exclusively by the writer. No import, diff or
	// apply operation writes it.
	Prose *string

	// Position is 0-indexed and unique within the scene.
	Position int

	Archived bool
	Locked   bool

	// SourceID is used only for reimport matching.
	SourceID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reference is a persisted flat entity (character, location, ...).
type Reference struct {
	ID         string
	ProjectID  string
	Kind       ReferenceKind
	Name       string
	Attributes map[string]string
	SourceID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProjectTree is a project with its whole outline, as read from the store.
type ProjectTree struct {
	Project    Project
	Chapters   []Chapter
	References []Reference
}

// FieldUpdates lists the fields a sync may write. Nil fields are left alone.
// There is deliberately no prose field.
type FieldUpdates struct {
	Title    *string
	Synopsis *string
	Content  *string
	Name     *string
}

// IsEmpty reports whether no field is set.
func (u FieldUpdates) IsEmpty() bool {
	return u.Title == nil && u.Synopsis == nil && u.Content == nil && u.Name == nil
}

// ItemKind identifies the level of an outline node.
type ItemKind string

const (
	// KindChapter is a chapter.
	KindChapter ItemKind = "chapter"

	// KindScene is a scene.
	KindScene ItemKind = "scene"

	// KindBeat is a beat.
	KindBeat ItemKind = "beat"

	// KindReference is a flat reference entity.
	KindReference ItemKind = "reference"

	// KindLink is a scene-reference link. It only appears in sync previews.
	KindLink ItemKind = "link"
)

// ParseItemKind converts a user-supplied name to an ItemKind.
func ParseItemKind(s string) (ItemKind, error) {
	switch ItemKind(s) {
	case KindChapter, KindScene, KindBeat, KindReference:
		return ItemKind(s), nil
	}
	return "", ErrUnsupportedType
}

// FindBeat locates a beat anywhere in the tree.
func (t *ProjectTree) FindBeat(id string) (*Beat, bool) {
	for i := range t.Chapters {
		for j := range t.Chapters[i].Scenes {
			for k := range t.Chapters[i].Scenes[j].Beats {
				if t.Chapters[i].Scenes[j].Beats[k].ID == id {
					return &t.Chapters[i].Scenes[j].Beats[k], true
				}
			}
		}
	}
	return nil, false
}

// Counts returns the number of chapters, scenes and beats in the tree.
func (t *ProjectTree) Counts() (chapters, scenes, beats int) {
	chapters = len(t.Chapters)
	for i := range t.Chapters {
		scenes += len(t.Chapters[i].Scenes)
		for j := range t.Chapters[i].Scenes {
			beats += len(t.Chapters[i].Scenes[j].Beats)
		}
	}
	return chapters, scenes, beats
}
