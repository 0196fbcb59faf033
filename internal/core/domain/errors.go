package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown format or entity kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrImportInProgress indicates an import or reimport is already running
	// for the project.
	ErrImportInProgress = errors.New("import in progress")

	// ErrStalePreview indicates a preview refers to entities that no longer exist.
	// The preview must be regenerated.
	ErrStalePreview = errors.New("preview is stale")

	// ErrLocked indicates the entity is locked against edits.
	ErrLocked = errors.New("entity is locked")

	// ErrNoImportSource indicates the project was not created by an import.
	ErrNoImportSource = errors.New("project has no import source")
)

// Parse error kinds. A *ParseError matches its kind with errors.Is.
var (
	// ErrUnreadable indicates the source could not be read (missing file, permissions).
	ErrUnreadable = errors.New("unreadable source")

	// ErrInvalidStructure indicates malformed JSON/XML or a missing required index.
	ErrInvalidStructure = errors.New("invalid structure")

	// ErrUnsupportedVersion indicates a recognised format with an unreadable schema revision.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrEncoding indicates bytes that are not safe as text.
	ErrEncoding = errors.New("encoding error")

	// ErrSourceMissing indicates the reimport target no longer exists.
	ErrSourceMissing = errors.New("source missing")
)

// ParseError reports why a source could not be turned into a ParsedProject.
// Parsing is all-or-nothing: a ParseError is never returned alongside a document.
type ParseError struct {
	// Kind is one of the parse error kind sentinels.
	Kind error

	// Path is the source that failed.
	Path string

	// Version is the offending schema revision for ErrUnsupportedVersion.
	Version string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Version != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Version)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewParseError creates a ParseError of the given kind.
func NewParseError(kind error, path string, err error) *ParseError {
	return &ParseError{Kind: kind, Path: path, Err: err}
}

// UnsupportedVersionError creates a ParseError carrying the offending version.
func UnsupportedVersionError(path, version string) *ParseError {
	return &ParseError{Kind: ErrUnsupportedVersion, Path: path, Version: version}
}

// ApplyError reports a failed apply. Nothing from the failed apply was committed.
type ApplyError struct {
	// ProjectID is the project the apply targeted.
	ProjectID string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply to project %s rolled back: %v", e.ProjectID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ApplyError) Unwrap() error {
	return e.Err
}
