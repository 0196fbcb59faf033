package driven

import (
	"context"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// Parser turns raw input of one format into the canonical import document.
// Parsing is all-or-nothing: either a complete document or a *domain.ParseError.
type Parser interface {
	// Format returns the format this parser handles.
	Format() domain.Format

	// Detect reports whether the path looks like this parser's format.
	// It must not read file contents beyond a stat.
	Detect(path string) bool

	// IsDirectory reports whether the format is a directory package.
	// Single-file formats receive their bytes in ImportInput.Content.
	IsDirectory() bool

	// Parse produces a ParsedProject from the input.
	Parse(ctx context.Context, input domain.ImportInput) (*domain.ParsedProject, error)
}

// ParserRegistry selects the parser for a source.
type ParserRegistry interface {
	// Register adds a parser. A later registration for the same format replaces the earlier one.
	Register(parser Parser)

	// Get returns the parser for an explicit format.
	Get(format domain.Format) (Parser, error)

	// Detect returns the parser whose Detect accepts the path.
	Detect(path string) (Parser, error)

	// Formats returns the registered formats.
	Formats() []domain.Format
}
