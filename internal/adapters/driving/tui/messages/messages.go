// Package messages defines Bubbletea message types for the review TUI.
package messages

import (
	"github.com/custodia-labs/quill/internal/core/domain"
)

// ApplyCompleted carries the outcome of applying the approved items.
type ApplyCompleted struct {
	Summary *domain.ReimportSummary
	Err     error
}
