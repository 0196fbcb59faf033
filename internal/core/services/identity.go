package services

import "github.com/custodia-labs/quill/internal/core/domain"

// MatchRule records how a parsed node was matched.
type MatchRule string

const (
	// MatchNone means the node is new.
	MatchNone MatchRule = ""

	// MatchSourceID is an exact native identifier match.
	MatchSourceID MatchRule = "source_id"

	// MatchTitlePosition is a title match confirmed by position.
	MatchTitlePosition MatchRule = "title_position"

	// MatchTitle is a title match at a different position.
	MatchTitle MatchRule = "title"
)

// Identity is what the resolver knows about a parsed node.
// Beats use their content as the title.
type Identity struct {
	Title    string
	Position int
	SourceID *string
}

// Candidate is a persisted sibling a parsed node may match.
type Candidate struct {
	ID       string
	Title    string
	Position int
	SourceID *string
}

// Resolution is the outcome of resolving one parsed node.
type Resolution struct {
	// ID is the matched persisted node, empty when there is no match.
	ID   string
	Rule MatchRule

	// Ambiguous is set when several candidates shared the title and none
	// shared the position. The lowest-position one was chosen.
	Ambiguous bool

	// Tied is the number of candidates that shared the title.
	Tied int
}

// Matched reports whether a persisted node was found.
func (r Resolution) Matched() bool {
	return r.ID != ""
}

// Resolver matches parsed nodes to persisted siblings within one parent
// scope. Each candidate is claimed at most once, so a Resolver must not be
// shared between scopes.
type Resolver struct {
	candidates []Candidate
	claimed    map[string]bool
}

// NewResolver creates a resolver over the persisted children of one parent.
func NewResolver(candidates []Candidate) *Resolver {
	return &Resolver{
		candidates: candidates,
		claimed:    make(map[string]bool, len(candidates)),
	}
}

// Resolve finds the persisted counterpart of a parsed node.
//
// A node with a source id only ever matches by that id. A node without one
// falls back to an identical title, preferring the candidate at the same
// position; fallback only considers candidates that carry no source id
// themselves.
func (r *Resolver) Resolve(node Identity) Resolution {
	if node.SourceID != nil {
		for _, c := range r.candidates {
			if !r.claimed[c.ID] && domain.SameSourceID(node.SourceID, c.SourceID) {
				r.claimed[c.ID] = true
				return Resolution{ID: c.ID, Rule: MatchSourceID}
			}
		}
		return Resolution{}
	}

	var titled []Candidate
	for _, c := range r.candidates {
		if r.claimed[c.ID] || c.SourceID != nil || c.Title != node.Title {
			continue
		}
		if c.Position == node.Position {
			r.claimed[c.ID] = true
			return Resolution{ID: c.ID, Rule: MatchTitlePosition}
		}
		titled = append(titled, c)
	}
	if len(titled) == 0 {
		return Resolution{}
	}

	best := titled[0]
	for _, c := range titled[1:] {
		if c.Position < best.Position {
			best = c
		}
	}
	r.claimed[best.ID] = true
	return Resolution{
		ID:        best.ID,
		Rule:      MatchTitle,
		Ambiguous: len(titled) > 1,
		Tied:      len(titled),
	}
}

// UnclaimedAt returns the unclaimed fallback candidate at a position, if any.
// Used to flag additions that may be renames.
func (r *Resolver) UnclaimedAt(position int) (Candidate, bool) {
	for _, c := range r.candidates {
		if !r.claimed[c.ID] && c.SourceID == nil && c.Position == position {
			return c, true
		}
	}
	return Candidate{}, false
}
