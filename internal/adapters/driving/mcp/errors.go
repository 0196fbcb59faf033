// Package mcp provides an MCP (Model Context Protocol) server adapter for quill.
// It lets AI assistants inspect projects and walk a writer through a reimport:
// preview what changed in the source, then apply the approved items.
package mcp

import "errors"

var (
	// ErrMissingImportService is returned when the import service is not provided.
	ErrMissingImportService = errors.New("mcp: import service is required")

	// ErrMissingProjectService is returned when the project service is not provided.
	ErrMissingProjectService = errors.New("mcp: project service is required")

	// ErrChecksumMismatch is returned when the source changed between preview and apply.
	ErrChecksumMismatch = errors.New("mcp: source changed since the preview; preview again")
)
