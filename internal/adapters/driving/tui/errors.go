package tui

import "errors"

// ErrMissingImportService is returned when the import service is not provided.
var ErrMissingImportService = errors.New("tui: import service is required")

// ErrMissingPreview is returned when there is no preview to review.
var ErrMissingPreview = errors.New("tui: preview is required")
