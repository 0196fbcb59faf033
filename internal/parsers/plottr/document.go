package plottr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/parsers"
)

// document is the subset of a .pltr file that quill reads.
type document struct {
	File             *fileHeader       `json:"file"`
	Series           *named            `json:"series"`
	Books            json.RawMessage   `json:"books"`
	Beats            json.RawMessage   `json:"beats"`
	Chapters         []beat            `json:"chapters"`
	Cards            []card            `json:"cards"`
	Lines            []line            `json:"lines"`
	Characters       []entity          `json:"characters"`
	Places           []entity          `json:"places"`
	CustomAttributes *customAttributes `json:"customAttributes"`
}

type fileHeader struct {
	FileName string `json:"fileName"`
	Version  string `json:"version"`
}

type named struct {
	Name string `json:"name"`
}

type beat struct {
	ID       flexID  `json:"id"`
	BookID   flexID  `json:"bookId"`
	Position float64 `json:"position"`
	Title    string  `json:"title"`
}

type card struct {
	ID                 flexID          `json:"id"`
	BeatID             flexID          `json:"beatId"`
	ChapterID          flexID          `json:"chapterId"`
	LineID             flexID          `json:"lineId"`
	BookID             flexID          `json:"bookId"`
	PositionWithinLine float64         `json:"positionWithinLine"`
	Title              string          `json:"title"`
	Description        json.RawMessage `json:"description"`
	Characters         []flexID        `json:"characters"`
	Places             []flexID        `json:"places"`
}

// beat returns the timeline unit the card sits on. Older files call it a chapter.
func (c card) beat() string {
	if c.BeatID != "" {
		return string(c.BeatID)
	}
	return string(c.ChapterID)
}

type line struct {
	ID       flexID  `json:"id"`
	Position float64 `json:"position"`
}

type attributeDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type customAttributes struct {
	Characters []attributeDef `json:"characters"`
	Places     []attributeDef `json:"places"`
}

// entity is a character or place. Custom attributes are stored as extra
// top-level keys, so the object is kept raw.
type entity map[string]json.RawMessage

func (e entity) str(key string) string {
	raw, ok := e[key]
	if !ok {
		return ""
	}
	return parsers.FlattenRichText(raw)
}

func (e entity) reference(kind domain.ReferenceKind, prefix string, custom []attributeDef) (domain.ParsedReference, error) {
	var id flexID
	if raw, ok := e["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return domain.ParsedReference{}, fmt.Errorf("%s id %s: %w", kind, raw, err)
		}
	}

	attrs := make(map[string]string)
	for _, key := range []string{"description", "notes"} {
		if v := e.str(key); v != "" {
			attrs[key] = v
		}
	}
	for _, def := range custom {
		if v := e.str(def.Name); v != "" {
			attrs[def.Name] = v
		}
	}

	ref := domain.ParsedReference{
		Kind:       kind,
		Name:       strings.TrimSpace(e.str("name")),
		Attributes: attrs,
	}
	if id != "" {
		ref.SourceID = domain.SourceIDOf(prefix + string(id))
	}
	return ref, nil
}

// flexID accepts both numeric and string ids.
type flexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// projectName prefers the series name, then the file name recorded in the
// header, then the path.
func (d *document) projectName(path string) string {
	if d.Series != nil && strings.TrimSpace(d.Series.Name) != "" {
		return strings.TrimSpace(d.Series.Name)
	}
	if d.File != nil && d.File.FileName != "" {
		return parsers.ProjectNameFromPath(d.File.FileName)
	}
	return parsers.ProjectNameFromPath(path)
}

// bookID returns the first book of the file, or "" for single-book files
// that carry no books table.
func (d *document) bookID() string {
	if len(d.Books) == 0 {
		return ""
	}
	var books struct {
		AllIDs []flexID `json:"allIds"`
	}
	if err := json.Unmarshal(d.Books, &books); err != nil || len(books.AllIDs) == 0 {
		return ""
	}
	return string(books.AllIDs[0])
}

// timeline is the ordered beat structure of one book.
type timeline struct {
	// top are the top-level beats in display order.
	top []beat

	// topOf maps every beat id to its top-level ancestor.
	topOf map[string]string

	// order is each beat's depth-first index, used to order cards across nested beats.
	order map[string]int
}

type beatTree struct {
	Children map[string][]flexID `json:"children"`
	Index    map[string]beat     `json:"index"`
}

// timeline extracts the beats of the book. Modern files key beat trees by
// book id; older ones store a flat array under "beats" or "chapters".
func (d *document) timeline(book string) (*timeline, error) {
	raw := bytes.TrimSpace(d.Beats)
	switch {
	case len(raw) > 0 && raw[0] == '{':
		var trees map[string]json.RawMessage
		if err := json.Unmarshal(raw, &trees); err != nil {
			return nil, err
		}
		key := book
		if _, ok := trees[key]; !ok {
			key = firstBookKey(trees)
		}
		if key == "" {
			return nil, errors.New("no book beats")
		}
		var tree beatTree
		if err := json.Unmarshal(trees[key], &tree); err != nil {
			return nil, err
		}
		return tree.flatten()

	case len(raw) > 0 && raw[0] == '[':
		var flat []beat
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, err
		}
		return flatTimeline(flat, book), nil

	case len(d.Chapters) > 0:
		return flatTimeline(d.Chapters, book), nil
	}
	return nil, errors.New("missing beats")
}

func firstBookKey(trees map[string]json.RawMessage) string {
	var keys []string
	for k := range trees {
		if k != "series" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return numericLess(keys[i], keys[j]) })
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// flatten walks the beat hierarchy. A beat reached twice means the
// children table loops or shares a child, and the file is rejected.
func (t beatTree) flatten() (*timeline, error) {
	tl := &timeline{topOf: make(map[string]string), order: make(map[string]int)}

	roots := t.Children["null"]
	if roots == nil {
		// No hierarchy recorded: every beat is top level.
		all := make([]beat, 0, len(t.Index))
		for _, b := range t.Index {
			all = append(all, b)
		}
		sortBeats(all)
		for _, b := range all {
			roots = append(roots, b.ID)
		}
	}

	var walk func(id flexID, top string) error
	walk = func(id flexID, top string) error {
		if _, seen := tl.order[string(id)]; seen {
			return fmt.Errorf("beat %s appears more than once in the beat hierarchy", id)
		}
		tl.topOf[string(id)] = top
		tl.order[string(id)] = len(tl.order)
		for _, k := range t.beatsOf(t.Children[string(id)]) {
			if err := walk(k.ID, top); err != nil {
				return err
			}
		}
		return nil
	}
	for _, b := range t.beatsOf(roots) {
		tl.top = append(tl.top, b)
		if err := walk(b.ID, string(b.ID)); err != nil {
			return nil, err
		}
	}
	return tl, nil
}

// beatsOf resolves ids against the index, ordered by position.
func (t beatTree) beatsOf(ids []flexID) []beat {
	out := make([]beat, 0, len(ids))
	for _, id := range ids {
		if b, ok := t.Index[string(id)]; ok {
			out = append(out, b)
		}
	}
	sortBeats(out)
	return out
}

func flatTimeline(beats []beat, book string) *timeline {
	var kept []beat
	for _, b := range beats {
		if book == "" || b.BookID == "" || string(b.BookID) == book {
			kept = append(kept, b)
		}
	}
	sortBeats(kept)

	tl := &timeline{top: kept, topOf: make(map[string]string), order: make(map[string]int)}
	for i, b := range kept {
		tl.topOf[string(b.ID)] = string(b.ID)
		tl.order[string(b.ID)] = i
	}
	return tl
}

func sortBeats(beats []beat) {
	sort.SliceStable(beats, func(i, j int) bool {
		if beats[i].Position != beats[j].Position {
			return beats[i].Position < beats[j].Position
		}
		return numericLess(string(beats[i].ID), string(beats[j].ID))
	})
}
