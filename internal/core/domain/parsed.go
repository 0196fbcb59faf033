package domain

// ImportInput is what a parser reads from.
type ImportInput struct {
	// Path is the source location (file or package directory).
	Path string

	// Content holds the file bytes for single-file formats.
	// Nil for directory-based formats, which read Path themselves.
	Content []byte
}

// ParsedProject is the canonical import document. It is created fresh on
// every parse and never persisted.
type ParsedProject struct {
	// Name is the project name suggested by the source.
	Name string

	// Format is the format that produced this document.
	Format Format

	// Chapters are the ordered top-level units.
	Chapters []ParsedChapter

	// References are flat entities such as characters and locations.
	References []ParsedReference

	// Associations link scenes to references.
	Associations []ParsedAssociation
}

// ParsedChapter is a chapter in the canonical import document.
type ParsedChapter struct {
	// Title is the chapter title.
	Title string

	// SourceID is the native identifier, nil when the format has none.
	SourceID *string

	// Scenes are the ordered scenes of the chapter.
	Scenes []ParsedScene
}

// ParsedScene is a scene in the canonical import document.
type ParsedScene struct {
	// Title is the scene title.
	Title string

	// Synopsis is the optional summary text.
	Synopsis string

	// SourceID is the native identifier, nil when the format has none.
	SourceID *string

	// Beats are the ordered beats of the scene.
	Beats []ParsedBeat

	// ReferenceIDs are the source ids of references linked to this scene.
	ReferenceIDs []string
}

// ParsedBeat is a beat in the canonical import document.
// Content is outline text only, never prose.
type ParsedBeat struct {
	// Content is the beat text.
	Content string

	// SourceID is the native or derived identifier, nil when the format has none.
	SourceID *string
}

// ReferenceKind classifies a flat reference entity.
type ReferenceKind string

const (
	// ReferenceCharacter is a character sheet.
	ReferenceCharacter ReferenceKind = "character"

	// ReferenceLocation is a place or setting.
	ReferenceLocation ReferenceKind = "location"

	// ReferenceItem is an object or prop.
	ReferenceItem ReferenceKind = "item"

	// ReferenceOther is any other kind of entity.
	ReferenceOther ReferenceKind = "other"
)

// ParsedReference is a flat entity in the canonical import document.
type ParsedReference struct {
	// Kind classifies the entity.
	Kind ReferenceKind

	// Name is the entity name.
	Name string

	// Attributes holds free-form key/value data.
	Attributes map[string]string

	// SourceID is the native identifier, nil when the format has none.
	SourceID *string
}

// ParsedAssociation links a scene to a reference by their source ids.
type ParsedAssociation struct {
	// SceneSourceID is the linked scene.
	SceneSourceID string

	// ReferenceSourceID is the linked reference.
	ReferenceSourceID string

	// SourceID identifies the link itself.
	SourceID *string
}

// SourceIDOf returns a pointer to id, or nil when id is empty.
// Parsers use it so that a missing native id is always nil, never "".
func SourceIDOf(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// SummarySourceID derives the identifier of the beat seeded from a
// scene's summary field. Returns nil when the scene has no source id.
func SummarySourceID(sceneID *string) *string {
	if sceneID == nil {
		return nil
	}
	return SourceIDOf(*sceneID + "#summary")
}

// SameSourceID reports whether two optional source ids are both set and equal.
func SameSourceID(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// Association returns the association linking a scene to a reference.
// A scene without a source id, or a link the format did not record, yields
// an association with no SourceID.
func (p *ParsedProject) Association(sceneSourceID *string, referenceSourceID string) ParsedAssociation {
	if sceneSourceID != nil {
		for _, a := range p.Associations {
			if a.SceneSourceID == *sceneSourceID && a.ReferenceSourceID == referenceSourceID {
				return a
			}
		}
	}
	scene := ""
	if sceneSourceID != nil {
		scene = *sceneSourceID
	}
	return ParsedAssociation{SceneSourceID: scene, ReferenceSourceID: referenceSourceID}
}

// Counts returns the number of chapters, scenes and beats in the document.
func (p *ParsedProject) Counts() (chapters, scenes, beats int) {
	chapters = len(p.Chapters)
	for i := range p.Chapters {
		scenes += len(p.Chapters[i].Scenes)
		for j := range p.Chapters[i].Scenes {
			beats += len(p.Chapters[i].Scenes[j].Beats)
		}
	}
	return chapters, scenes, beats
}
