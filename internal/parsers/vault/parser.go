// Package vault parses Obsidian-style vaults: a directory of markdown notes
// with YAML frontmatter.
//
// Top-level folders are chapters and the notes inside them are scenes.
// Notes typed as characters, locations or items, or kept in folders named
// after those kinds, are references. Frontmatter ids become source ids.
package vault

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles note vaults.
type Parser struct{}

// New creates a new vault parser.
func New() *Parser {
	return &Parser{}
}

// Format returns domain.FormatVault.
func (p *Parser) Format() domain.Format {
	return domain.FormatVault
}

// Detect accepts any directory. Register package formats such as
// Scrivener first so they win detection.
func (p *Parser) Detect(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsDirectory returns true.
func (p *Parser) IsDirectory() bool {
	return true
}

// Parse reads every note under the vault root.
func (p *Parser) Parse(ctx context.Context, input domain.ImportInput) (*domain.ParsedProject, error) {
	root := filepath.Clean(input.Path)
	if err := parsers.StatDir(root); err != nil {
		return nil, err
	}

	notes, err := readNotes(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, domain.NewParseError(domain.ErrInvalidStructure, root, errors.New("no markdown notes"))
	}

	project := build(notes)
	project.Name = parsers.ProjectNameFromPath(root)

	c, s, b := project.Counts()
	logger.Debug("vault: %s parsed %d notes to %d chapters, %d scenes, %d beats, %d references",
		root, len(notes), c, s, b, len(project.References))
	return project, nil
}

// readNotes walks the vault, skipping hidden directories such as .obsidian.
func readNotes(ctx context.Context, root string) ([]*note, error) {
	var notes []*note
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return domain.NewParseError(domain.ErrUnreadable, p, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return domain.NewParseError(domain.ErrUnreadable, p, err)
		}
		text, err := parsers.DecodeText(p, data)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return domain.NewParseError(domain.ErrUnreadable, p, err)
		}
		n, err := parseNote(filepath.ToSlash(rel), strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())), text)
		if err != nil {
			return domain.NewParseError(domain.ErrInvalidStructure, p, err)
		}
		notes = append(notes, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// unit is a top-level entry of the vault: a folder or a loose note.
type unit struct {
	folder string
	index  *note
	notes  []*note
	loose  *note
}

func (u *unit) order() *note {
	if u.loose != nil {
		return u.loose
	}
	if u.index != nil {
		return u.index
	}
	return &note{rel: u.folder}
}

func build(notes []*note) *domain.ParsedProject {
	project := &domain.ParsedProject{Format: domain.FormatVault}

	var refs []*note
	units := make(map[string]*unit)
	var order []string

	for _, n := range notes {
		dir := path.Dir(n.rel)
		if isReference(n, dir) {
			refs = append(refs, n)
			continue
		}

		top, _, _ := strings.Cut(n.rel, "/")
		if dir == "." {
			units[n.rel] = &unit{loose: n}
			order = append(order, n.rel)
			continue
		}
		u, ok := units[top]
		if !ok {
			u = &unit{folder: top}
			units[top] = u
			order = append(order, top)
		}
		if dir == top && strings.EqualFold(n.name, top) && u.index == nil {
			u.index = n
			continue
		}
		u.notes = append(u.notes, n)
	}

	// Order top-level units by their own note's order, then name.
	keys := make([]*note, 0, len(order))
	byKey := make(map[*note]*unit, len(order))
	for _, k := range order {
		u := units[k]
		kn := u.order()
		keys = append(keys, kn)
		byKey[kn] = u
	}
	sortNotes(keys)

	refIDs := make(map[string]string, len(refs))
	for _, r := range refs {
		if id := r.id(); id != "" {
			refIDs[strings.ToLower(r.name)] = id
			refIDs[strings.ToLower(r.title())] = id
		}
	}

	for _, k := range keys {
		u := byKey[k]
		var ch domain.ParsedChapter
		if u.loose != nil {
			sc := scene(u.loose, refIDs, &project.Associations)
			ch = domain.ParsedChapter{Title: sc.Title, Scenes: []domain.ParsedScene{sc}}
			if id := u.loose.id(); id != "" {
				ch.SourceID = domain.SourceIDOf(id + "#chapter")
			}
		} else {
			ch = domain.ParsedChapter{Title: u.folder}
			if u.index != nil {
				ch.Title = u.index.title()
				ch.SourceID = domain.SourceIDOf(u.index.id())
			}
			sortNotes(u.notes)
			for _, n := range u.notes {
				ch.Scenes = append(ch.Scenes, scene(n, refIDs, &project.Associations))
			}
		}
		project.Chapters = append(project.Chapters, ch)
	}

	sortNotes(refs)
	for _, r := range refs {
		kind, ok := referenceKind(r.meta.Type)
		if !ok {
			kind = folderKind(path.Dir(r.rel))
		}
		project.References = append(project.References, domain.ParsedReference{
			Kind:       kind,
			Name:       r.title(),
			Attributes: r.attributes(),
			SourceID:   domain.SourceIDOf(r.id()),
		})
	}
	return project
}

// scene maps a note. The summary is the first beat; list items in the body
// follow it. Wikilinks to identified reference notes become associations.
func scene(n *note, refIDs map[string]string, assocs *[]domain.ParsedAssociation) domain.ParsedScene {
	sc := domain.ParsedScene{
		Title:    n.title(),
		Synopsis: n.summary(),
		SourceID: domain.SourceIDOf(n.id()),
	}
	if sc.Synopsis != "" {
		sc.Beats = append(sc.Beats, domain.ParsedBeat{
			Content:  sc.Synopsis,
			SourceID: domain.SummarySourceID(sc.SourceID),
		})
	}
	for _, item := range n.listItems() {
		sc.Beats = append(sc.Beats, domain.ParsedBeat{Content: item})
	}

	if sc.SourceID == nil {
		return sc
	}
	for _, target := range n.links() {
		refID, ok := refIDs[target]
		if !ok {
			continue
		}
		sc.ReferenceIDs = append(sc.ReferenceIDs, refID)
		*assocs = append(*assocs, domain.ParsedAssociation{
			SceneSourceID:     *sc.SourceID,
			ReferenceSourceID: refID,
			SourceID:          domain.SourceIDOf(*sc.SourceID + ":" + refID),
		})
	}
	return sc
}

// isReference reports whether a note is a reference sheet, by its type or
// by any enclosing folder name.
func isReference(n *note, dir string) bool {
	if _, ok := referenceKind(n.meta.Type); ok {
		return true
	}
	return folderKind(dir) != ""
}

// folderKind returns the kind named by the nearest enclosing folder.
func folderKind(dir string) domain.ReferenceKind {
	if dir == "." {
		return ""
	}
	parts := strings.Split(dir, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if kind, ok := referenceKind(parts[i]); ok {
			return kind
		}
	}
	return ""
}
