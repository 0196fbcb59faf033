package mcp

import (
	"github.com/custodia-labs/quill/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Import previews and applies reimports.
	Import driving.ImportService

	// Project lists projects and reads outlines.
	Project driving.ProjectService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Import == nil {
		return ErrMissingImportService
	}
	if p.Project == nil {
		return ErrMissingProjectService
	}
	return nil
}
