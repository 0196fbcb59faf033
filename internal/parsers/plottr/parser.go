// Package plottr parses Plottr (.pltr) JSON outlines.
//
// Timeline beats become chapters, cards become scenes, and characters and
// places become references. Plottr's numeric ids are namespaced by entity
// ("beat-3", "card-12", "character-2") so they stay unique in SourceID.
package plottr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// minMajorVersion is the oldest calendar-versioned file format understood.
const minMajorVersion = 2020

// Parser handles Plottr files.
type Parser struct{}

// New creates a new Plottr parser.
func New() *Parser {
	return &Parser{}
}

// Format returns domain.FormatPlottr.
func (p *Parser) Format() domain.Format {
	return domain.FormatPlottr
}

// Detect accepts .pltr files.
func (p *Parser) Detect(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pltr")
}

// IsDirectory returns false.
func (p *Parser) IsDirectory() bool {
	return false
}

// Parse decodes the file and maps it to a ParsedProject.
func (p *Parser) Parse(ctx context.Context, input domain.ImportInput) (*domain.ParsedProject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := parsers.ReadInput(input)
	if err != nil {
		return nil, err
	}
	text, err := parsers.DecodeText(input.Path, data)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, domain.NewParseError(domain.ErrInvalidStructure, input.Path, err)
	}
	if err := checkVersion(input.Path, doc.File); err != nil {
		return nil, err
	}

	book := doc.bookID()
	beats, err := doc.timeline(book)
	if err != nil {
		return nil, domain.NewParseError(domain.ErrInvalidStructure, input.Path, err)
	}

	m := &mapper{doc: &doc, book: book, beats: beats}
	refs, err := m.references()
	if err != nil {
		return nil, domain.NewParseError(domain.ErrInvalidStructure, input.Path, err)
	}
	project := &domain.ParsedProject{
		Name:       doc.projectName(input.Path),
		Format:     domain.FormatPlottr,
		References: refs,
	}
	project.Chapters, project.Associations = m.chapters()

	c, s, b := project.Counts()
	logger.Debug("plottr: %s (version %s) parsed to %d chapters, %d scenes, %d beats, %d references",
		input.Path, doc.File.Version, c, s, b, len(project.References))
	return project, nil
}

func checkVersion(path string, file *fileHeader) error {
	if file == nil || file.Version == "" {
		return domain.NewParseError(domain.ErrInvalidStructure, path, errors.New("missing file version"))
	}
	major, _, _ := strings.Cut(file.Version, ".")
	n, err := strconv.Atoi(major)
	if err != nil || n < minMajorVersion {
		return domain.UnsupportedVersionError(path, file.Version)
	}
	return nil
}

// mapper builds the canonical document from a decoded file.
type mapper struct {
	doc   *document
	book  string
	beats *timeline
}

func (m *mapper) chapters() ([]domain.ParsedChapter, []domain.ParsedAssociation) {
	linePos := make(map[string]float64, len(m.doc.Lines))
	for _, l := range m.doc.Lines {
		linePos[string(l.ID)] = l.Position
	}

	// Cards grouped under the top-level beat that owns their beat.
	grouped := make(map[string][]card)
	for _, c := range m.doc.Cards {
		if c.BookID != "" && m.book != "" && string(c.BookID) != m.book {
			continue
		}
		top, ok := m.beats.topOf[c.beat()]
		if !ok {
			continue
		}
		grouped[top] = append(grouped[top], c)
	}

	var chapters []domain.ParsedChapter
	var assocs []domain.ParsedAssociation
	for i, b := range m.beats.top {
		cards := grouped[string(b.ID)]
		sort.SliceStable(cards, func(x, y int) bool {
			cx, cy := cards[x], cards[y]
			if dx, dy := m.beats.order[cx.beat()], m.beats.order[cy.beat()]; dx != dy {
				return dx < dy
			}
			if cx.PositionWithinLine != cy.PositionWithinLine {
				return cx.PositionWithinLine < cy.PositionWithinLine
			}
			if lx, ly := linePos[string(cx.LineID)], linePos[string(cy.LineID)]; lx != ly {
				return lx < ly
			}
			return numericLess(string(cx.ID), string(cy.ID))
		})

		title := strings.TrimSpace(b.Title)
		if title == "" || strings.EqualFold(title, "auto") {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		ch := domain.ParsedChapter{
			Title:    title,
			SourceID: domain.SourceIDOf("beat-" + string(b.ID)),
		}
		for j, c := range cards {
			scene, links := m.scene(j, c)
			ch.Scenes = append(ch.Scenes, scene)
			assocs = append(assocs, links...)
		}
		chapters = append(chapters, ch)
	}
	return chapters, assocs
}

func (m *mapper) scene(index int, c card) (domain.ParsedScene, []domain.ParsedAssociation) {
	id := "card-" + string(c.ID)
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = fmt.Sprintf("Scene %d", index+1)
	}
	scene := domain.ParsedScene{
		Title:    title,
		Synopsis: parsers.FlattenRichText(c.Description),
		SourceID: domain.SourceIDOf(id),
	}
	if scene.Synopsis != "" {
		scene.Beats = []domain.ParsedBeat{{
			Content:  scene.Synopsis,
			SourceID: domain.SummarySourceID(scene.SourceID),
		}}
	}

	var links []domain.ParsedAssociation
	link := func(prefix string, ids []flexID) {
		for _, rid := range ids {
			if rid == "" {
				continue
			}
			ref := prefix + string(rid)
			scene.ReferenceIDs = append(scene.ReferenceIDs, ref)
			links = append(links, domain.ParsedAssociation{
				SceneSourceID:     id,
				ReferenceSourceID: ref,
				SourceID:          domain.SourceIDOf(id + ":" + ref),
			})
		}
	}
	link("character-", c.Characters)
	link("place-", c.Places)
	return scene, links
}

func (m *mapper) references() ([]domain.ParsedReference, error) {
	var custom customAttributes
	if m.doc.CustomAttributes != nil {
		custom = *m.doc.CustomAttributes
	}

	var refs []domain.ParsedReference
	add := func(entities []entity, kind domain.ReferenceKind, prefix string, defs []attributeDef) error {
		for _, e := range entities {
			ref, err := e.reference(kind, prefix, defs)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		return nil
	}
	if err := add(m.doc.Characters, domain.ReferenceCharacter, "character-", custom.Characters); err != nil {
		return nil, err
	}
	if err := add(m.doc.Places, domain.ReferenceLocation, "place-", custom.Places); err != nil {
		return nil, err
	}
	return refs, nil
}

// numericLess orders decimal ids numerically, falling back to string order.
func numericLess(a, b string) bool {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
