// Package parsers provides the Parser registry and the text helpers shared
// by the format parsers. Each supported format lives in its own
// subpackage and produces a domain.ParsedProject:
//
//   - markdown: plain heading/list outline
//   - plottr: structured JSON outline
//   - scrivener: folder-based manuscript package
//   - ywriter: XML project file
//   - vault: directory of notes with YAML frontmatter
//
// Parsers are registered with the Registry at startup.
package parsers
