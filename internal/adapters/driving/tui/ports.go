// Package tui provides the interactive reimport review screen.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/quill/internal/core/ports/driving"
)

// Ports aggregates the driving ports the review screen calls.
type Ports struct {
	// Import applies the approved preview items.
	Import driving.ImportService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Import == nil {
		return ErrMissingImportService
	}
	return nil
}
