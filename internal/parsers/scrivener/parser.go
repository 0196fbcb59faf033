// Package scrivener parses Scrivener 3 (.scriv) project packages.
//
// The .scrivx index describes the binder. Folders directly under the draft
// become chapters; text documents become scenes, with deeper folders
// flattened into their chapter. Scene synopses are read from
// Files/Data/<UUID>/synopsis.txt. The research folder is scanned for
// character and location sheets.
package scrivener

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
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

// minMajorVersion is the oldest .scrivx schema understood (Scrivener 3).
const minMajorVersion = 2

// defaultTemplates maps template, label and folder names to reference kinds.
var defaultTemplates = map[string]domain.ReferenceKind{
	"character":        domain.ReferenceCharacter,
	"characters":       domain.ReferenceCharacter,
	"character sketch": domain.ReferenceCharacter,
	"location":         domain.ReferenceLocation,
	"locations":        domain.ReferenceLocation,
	"setting":          domain.ReferenceLocation,
	"settings":         domain.ReferenceLocation,
	"setting sketch":   domain.ReferenceLocation,
	"place":            domain.ReferenceLocation,
	"places":           domain.ReferenceLocation,
}

// Parser handles Scrivener packages.
type Parser struct {
	templates map[string]domain.ReferenceKind
}

// Option configures a Parser.
type Option func(*Parser)

// WithTemplates adds research template names that identify reference sheets.
func WithTemplates(templates map[string]domain.ReferenceKind) Option {
	return func(p *Parser) {
		for name, kind := range templates {
			p.templates[strings.ToLower(strings.TrimSpace(name))] = kind
		}
	}
}

// New creates a new Scrivener parser.
func New(opts ...Option) *Parser {
	p := &Parser{templates: make(map[string]domain.ReferenceKind, len(defaultTemplates))}
	for k, v := range defaultTemplates {
		p.templates[k] = v
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseTemplates reads "Name=kind" pairs separated by commas, as stored in
// the scrivener.research_templates setting.
func ParseTemplates(s string) (map[string]domain.ReferenceKind, error) {
	out := make(map[string]domain.ReferenceKind)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, kind, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: template %q must be Name=kind", domain.ErrInvalidInput, pair)
		}
		k := domain.ReferenceKind(strings.ToLower(strings.TrimSpace(kind)))
		switch k {
		case domain.ReferenceCharacter, domain.ReferenceLocation, domain.ReferenceItem, domain.ReferenceOther:
		default:
			return nil, fmt.Errorf("%w: unknown reference kind %q", domain.ErrInvalidInput, kind)
		}
		out[strings.TrimSpace(name)] = k
	}
	return out, nil
}

// Format returns domain.FormatScrivener.
func (p *Parser) Format() domain.Format {
	return domain.FormatScrivener
}

// Detect accepts .scriv packages and their .scrivx index.
func (p *Parser) Detect(path string) bool {
	ext := strings.ToLower(filepath.Ext(filepath.Clean(path)))
	return ext == ".scriv" || ext == ".scrivx"
}

// IsDirectory returns true.
func (p *Parser) IsDirectory() bool {
	return true
}

// Parse reads the package index and the per-document files it references.
func (p *Parser) Parse(ctx context.Context, input domain.ImportInput) (*domain.ParsedProject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := filepath.Clean(input.Path)
	if strings.EqualFold(filepath.Ext(root), ".scrivx") {
		root = filepath.Dir(root)
	}
	if err := parsers.StatDir(root); err != nil {
		return nil, err
	}

	index, err := findIndex(root)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(index)
	if err != nil {
		return nil, domain.NewParseError(domain.ErrUnreadable, index, err)
	}

	var proj project
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil, domain.NewParseError(domain.ErrInvalidStructure, index, err)
	}
	if err := checkVersion(index, proj.Version); err != nil {
		return nil, err
	}

	draft := proj.find(typeDraft)
	if draft == nil {
		return nil, domain.NewParseError(domain.ErrInvalidStructure, index, errors.New("binder has no draft folder"))
	}

	r := &reader{root: root, templates: p.templates, proj: &proj}
	result := &domain.ParsedProject{
		Name:   parsers.ProjectNameFromPath(root),
		Format: domain.FormatScrivener,
	}
	if result.Chapters, err = r.chapters(ctx, draft); err != nil {
		return nil, err
	}
	if research := proj.find(typeResearch); research != nil {
		if result.References, err = r.references(research); err != nil {
			return nil, err
		}
	}

	c, s, b := result.Counts()
	logger.Debug("scrivener: %s parsed to %d chapters, %d scenes, %d beats, %d references",
		root, c, s, b, len(result.References))
	return result, nil
}

// findIndex returns the package's .scrivx file, preferring the one named
// after the package.
func findIndex(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.scrivx"))
	if err != nil {
		return "", domain.NewParseError(domain.ErrUnreadable, root, err)
	}
	if len(matches) == 0 {
		return "", domain.NewParseError(domain.ErrInvalidStructure, root, errors.New("no .scrivx index"))
	}
	sort.Strings(matches)
	want := strings.TrimSuffix(filepath.Base(root), filepath.Ext(root)) + ".scrivx"
	for _, m := range matches {
		if filepath.Base(m) == want {
			return m, nil
		}
	}
	return matches[0], nil
}

func checkVersion(path, version string) error {
	if version == "" {
		return domain.NewParseError(domain.ErrInvalidStructure, path, errors.New("missing project version"))
	}
	major, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(major)
	if err != nil || n < minMajorVersion {
		return domain.UnsupportedVersionError(path, version)
	}
	return nil
}
