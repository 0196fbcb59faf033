// Package domain defines the core business entities for quill.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ParsedProject: The canonical import document every parser produces
//   - ProjectTree: The persisted outline (chapters, scenes, beats, references)
//   - SyncPreview: Proposed additions and field changes for a reimport
//   - ReimportSummary: What an apply actually wrote
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
