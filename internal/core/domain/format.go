package domain

import (
	"fmt"
	"strings"
)

// Format identifies a supported source format. The set is closed:
// every parser reports exactly one of these values.
type Format string

const (
	// FormatMarkdown is a plain heading/list outline.
	FormatMarkdown Format = "markdown"

	// FormatPlottr is a structured JSON outline (.pltr).
	FormatPlottr Format = "plottr"

	// FormatScrivener is a folder-based manuscript package (.scriv).
	FormatScrivener Format = "scrivener"

	// FormatYWriter is an XML project file (.yw7).
	FormatYWriter Format = "ywriter"

	// FormatVault is a vault-of-files outline (directory of notes with frontmatter).
	FormatVault Format = "vault"
)

// AllFormats returns every supported format in display order.
func AllFormats() []Format {
	return []Format{FormatMarkdown, FormatPlottr, FormatScrivener, FormatYWriter, FormatVault}
}

// ParseFormat converts a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "md":
		return FormatMarkdown, nil
	case "pltr":
		return FormatPlottr, nil
	case "scriv":
		return FormatScrivener, nil
	case "yw7":
		return FormatYWriter, nil
	case "obsidian":
		return FormatVault, nil
	}
	for _, f := range AllFormats() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: format %q", ErrUnsupportedType, s)
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}

// HasNativeIDs reports whether the format carries stable identifiers.
// Formats without them rely on the title/position fallback during reimport.
func (f Format) HasNativeIDs() bool {
	return f != FormatMarkdown
}
