// Package ywriter parses yWriter 7 (.yw7) project files.
package ywriter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// supportedRoot is the root element of the only schema revision understood.
const supportedRoot = "YWRITER7"

var versionedRoot = regexp.MustCompile(`^YWRITER\d+$`)

// Parser handles yWriter project files.
type Parser struct{}

// New creates a new yWriter parser.
func New() *Parser {
	return &Parser{}
}

// Format returns domain.FormatYWriter.
func (p *Parser) Format() domain.Format {
	return domain.FormatYWriter
}

// Detect accepts .yw7 files, and older .yw5/.yw6 files so their version
// can be reported.
func (p *Parser) Detect(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yw7", ".yw6", ".yw5":
		return true
	}
	return false
}

// IsDirectory returns false.
func (p *Parser) IsDirectory() bool {
	return false
}

// Parse decodes the project XML.
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

	doc, err := decode(input.Path, text)
	if err != nil {
		return nil, err
	}

	project := doc.toParsed(input.Path)
	c, s, b := project.Counts()
	logger.Debug("ywriter: %s parsed to %d chapters, %d scenes, %d beats, %d references",
		input.Path, c, s, b, len(project.References))
	return project, nil
}

// decode checks the root element before decoding the document.
func decode(path, text string) (*document, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	// The text is already UTF-8; declared encodings such as utf-16 are stale.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("no root element")
			}
			return nil, domain.NewParseError(domain.ErrInvalidStructure, path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		name := start.Name.Local
		switch {
		case name == supportedRoot:
			var doc document
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil, domain.NewParseError(domain.ErrInvalidStructure, path, err)
			}
			return &doc, nil
		case versionedRoot.MatchString(name):
			return nil, domain.UnsupportedVersionError(path, name)
		default:
			return nil, domain.NewParseError(domain.ErrInvalidStructure, path,
				fmt.Errorf("root element <%s> is not a yWriter project", name))
		}
	}
}
