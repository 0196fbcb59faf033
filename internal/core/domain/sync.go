package domain

import "time"

// ChangeField names a field a sync may change. Prose is never one of them.
type ChangeField string

const (
	// FieldTitle is a chapter/scene title or a reference name.
	FieldTitle ChangeField = "title"

	// FieldSynopsis is a scene synopsis.
	FieldSynopsis ChangeField = "synopsis"

	// FieldContent is a beat's outline text.
	FieldContent ChangeField = "content"
)

// SyncAddition is a parsed node with no persisted counterpart.
type SyncAddition struct {
	// Key identifies the addition for approval.
	Key string

	// Kind is the level of the node.
	Kind ItemKind

	// Title is the display title (beat content for beats, name for references).
	Title string

	// ParentTitle is the parent's title, for display.
	ParentTitle string

	// ParentID is the persisted parent, when the parent already exists.
	ParentID string

	// ParentKey is the addition key of the parent, when the parent is new too.
	ParentKey string

	// Synopsis is the scene synopsis.
	Synopsis string

	// Content is the beat content.
	Content string

	// SourceID is carried into the created entity.
	SourceID *string

	// ReferenceKind and Attributes describe reference additions.
	ReferenceKind ReferenceKind
	Attributes    map[string]string

	// Links are the associations a new scene carries, or the single
	// association of a link addition.
	Links []ParsedAssociation
}

// SyncChange is a field-level difference on a matched node.
type SyncChange struct {
	// Key identifies the change for approval.
	Key string

	// Kind is the level of the node.
	Kind ItemKind

	// Field is the changed field.
	Field ChangeField

	// Current is the persisted value.
	Current string

	// Proposed is the value from the source.
	Proposed string

	// TargetID is the persisted entity to update.
	TargetID string
}

// WarningKind classifies a sync warning.
type WarningKind string

const (
	// WarningAmbiguousMatch means several persisted nodes shared the title
	// and none shared the position.
	WarningAmbiguousMatch WarningKind = "ambiguous_match"

	// WarningPossibleRename means an added node sits where an unmatched
	// persisted node was; it may be a rename the fallback cannot see.
	WarningPossibleRename WarningKind = "possible_rename"
)

// SyncWarning surfaces identity ambiguity to the user. It never changes
// what the preview proposes.
type SyncWarning struct {
	Kind     WarningKind
	ItemKind ItemKind
	Title    string
	Message  string
}

// SyncPreview is the proposed set of additions and changes for one reimport.
type SyncPreview struct {
	ProjectID  string
	Format     Format
	SourcePath string

	// Checksum is the hash of the parsed source bytes.
	Checksum string

	Additions []SyncAddition
	Changes   []SyncChange
	Warnings  []SyncWarning
}

// IsEmpty reports whether the preview proposes nothing ("no changes detected").
func (p *SyncPreview) IsEmpty() bool {
	return len(p.Additions) == 0 && len(p.Changes) == 0
}

// Keys returns the approval key of every addition and change.
func (p *SyncPreview) Keys() []string {
	keys := make([]string, 0, len(p.Additions)+len(p.Changes))
	for i := range p.Additions {
		keys = append(keys, p.Additions[i].Key)
	}
	for i := range p.Changes {
		keys = append(keys, p.Changes[i].Key)
	}
	return keys
}

// ReimportSummary tallies what an import or apply wrote.
type ReimportSummary struct {
	ChaptersAdded     int
	ChaptersUpdated   int
	ScenesAdded       int
	ScenesUpdated     int
	BeatsAdded        int
	BeatsUpdated      int
	ReferencesAdded   int
	ReferencesUpdated int
	LinksAdded        int

	// ProsePreserved counts beats with prose inside the subtree of an
	// applied change; their prose was left untouched.
	ProsePreserved int

	// Skipped counts approved additions whose parent or linked reference
	// was not created, and approved changes to locked nodes.
	Skipped int
}

// Total returns the number of entities written.
func (s *ReimportSummary) Total() int {
	return s.ChaptersAdded + s.ChaptersUpdated + s.ScenesAdded + s.ScenesUpdated +
		s.BeatsAdded + s.BeatsUpdated + s.ReferencesAdded + s.ReferencesUpdated + s.LinksAdded
}

// ImportSource records where a project was imported from.
type ImportSource struct {
	ProjectID string
	Path      string
	Format    Format

	// Checksum is the hash of the source as last imported or applied.
	Checksum string

	LastImport time.Time
}

// SourceChanged is emitted when a recorded import source differs on disk.
type SourceChanged struct {
	ProjectID string
	Path      string
	Checksum  string
}
