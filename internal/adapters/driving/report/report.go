// Package report holds the JSON shapes of sync previews and summaries shared
// by the CLI and the MCP server.
package report

import "github.com/custodia-labs/quill/internal/core/domain"

// PreviewOutput is a reimport preview as printed by quill preview --json
// and returned by the preview_reimport tool.
type PreviewOutput struct {
	ProjectID string           `json:"project_id"`
	Format    string           `json:"format"`
	Source    string           `json:"source"`
	Checksum  string           `json:"checksum"`
	Empty     bool             `json:"empty"`
	Additions []AdditionOutput `json:"additions"`
	Changes   []ChangeOutput   `json:"changes"`
	Warnings  []WarningOutput  `json:"warnings"`
}

// AdditionOutput is a proposed new node.
type AdditionOutput struct {
	Key    string `json:"key"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Parent string `json:"parent,omitempty"`
}

// ChangeOutput is a proposed field change.
type ChangeOutput struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Field    string `json:"field"`
	Current  string `json:"current"`
	Proposed string `json:"proposed"`
}

// WarningOutput is an identity warning.
type WarningOutput struct {
	Kind    string `json:"kind"`
	Item    string `json:"item"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SummaryOutput tallies an applied reimport.
type SummaryOutput struct {
	ChaptersAdded     int `json:"chapters_added"`
	ChaptersUpdated   int `json:"chapters_updated"`
	ScenesAdded       int `json:"scenes_added"`
	ScenesUpdated     int `json:"scenes_updated"`
	BeatsAdded        int `json:"beats_added"`
	BeatsUpdated      int `json:"beats_updated"`
	ReferencesAdded   int `json:"references_added"`
	ReferencesUpdated int `json:"references_updated"`
	LinksAdded        int `json:"links_added"`
	ProsePreserved    int `json:"prose_preserved"`
	Skipped           int `json:"skipped"`
}

// NewPreview converts a preview for JSON output.
func NewPreview(p *domain.SyncPreview) PreviewOutput {
	out := PreviewOutput{
		ProjectID: p.ProjectID,
		Format:    p.Format.String(),
		Source:    p.SourcePath,
		Checksum:  p.Checksum,
		Empty:     p.IsEmpty(),
		Additions: make([]AdditionOutput, len(p.Additions)),
		Changes:   make([]ChangeOutput, len(p.Changes)),
		Warnings:  make([]WarningOutput, len(p.Warnings)),
	}
	for i, a := range p.Additions {
		out.Additions[i] = AdditionOutput{Key: a.Key, Kind: string(a.Kind), Title: a.Title, Parent: a.ParentTitle}
	}
	for i, c := range p.Changes {
		out.Changes[i] = ChangeOutput{
			Key: c.Key, Kind: string(c.Kind), Field: string(c.Field),
			Current: c.Current, Proposed: c.Proposed,
		}
	}
	for i, w := range p.Warnings {
		out.Warnings[i] = WarningOutput{Kind: string(w.Kind), Item: string(w.ItemKind), Title: w.Title, Message: w.Message}
	}
	return out
}

// NewSummary converts a summary for JSON output.
func NewSummary(s *domain.ReimportSummary) SummaryOutput {
	return SummaryOutput{
		ChaptersAdded:     s.ChaptersAdded,
		ChaptersUpdated:   s.ChaptersUpdated,
		ScenesAdded:       s.ScenesAdded,
		ScenesUpdated:     s.ScenesUpdated,
		BeatsAdded:        s.BeatsAdded,
		BeatsUpdated:      s.BeatsUpdated,
		ReferencesAdded:   s.ReferencesAdded,
		ReferencesUpdated: s.ReferencesUpdated,
		LinksAdded:        s.LinksAdded,
		ProsePreserved:    s.ProsePreserved,
		Skipped:           s.Skipped,
	}
}
