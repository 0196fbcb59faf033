package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
	"github.com/custodia-labs/quill/internal/logger"
)

// Ensure ImportService implements the interface.
var _ driving.ImportService = (*ImportService)(nil)

// Import phases reported by Status.
const (
	phaseParse = "parse"
	phaseDiff  = "diff"
	phaseApply = "apply"
)

// ImportService coordinates first imports and reimports.
type ImportService struct {
	registry driven.ParserRegistry
	store    driven.ProjectStore
	sources  driven.ImportSourceStore
	applier  *Applier
	locks    *ProjectLocks
	newID    func() string
	now      func() time.Time

	// Status tracking
	mu     sync.RWMutex
	active map[string]*driving.ImportStatus
}

// NewImportService creates a new import service.
// The locks are shared with the ProjectService so writer edits and reimport
// applies on one project never interleave.
func NewImportService(
	registry driven.ParserRegistry,
	store driven.ProjectStore,
	tx driven.Transactor,
	sources driven.ImportSourceStore,
	locks *ProjectLocks,
) *ImportService {
	return &ImportService{
		registry: registry,
		store:    store,
		sources:  sources,
		applier:  NewApplier(tx),
		locks:    locks,
		newID:    uuid.NewString,
		now:      time.Now,
		active:   make(map[string]*driving.ImportStatus),
	}
}

// Import parses a source and materialises it as a new project.
func (s *ImportService) Import(ctx context.Context, req driving.ImportRequest) (*driving.ImportResult, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("%w: import path is required", domain.ErrInvalidInput)
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	// 1. Pick the parser
	parser, err := s.parserFor(path, req.Format)
	if err != nil {
		return nil, err
	}

	// 2. Parse
	logger.Section("Import")
	logger.Info("Parsing %s as %s", path, parser.Format())
	src, err := s.parse(ctx, parser, path, domain.ErrUnreadable)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = src.parsed.Name
	}
	if name == "" {
		name = filepath.Base(src.path)
	}
	project := domain.Project{ID: s.newID(), Name: name}

	// 3. Materialise; parsing succeeded, so the write is not cancellable
	summary, err := s.applier.Materialise(context.WithoutCancel(ctx), project, src.parsed)
	if err != nil {
		return nil, err
	}

	// 4. Record the source for later reimports
	s.recordSource(context.WithoutCancel(ctx), project.ID, src.path, parser.Format(), src.checksum)

	c, sc, b := src.parsed.Counts()
	logger.Info("Imported %q: %d chapters, %d scenes, %d beats, %d references",
		project.Name, c, sc, b, len(src.parsed.References))

	return &driving.ImportResult{
		Project: project,
		Format:  parser.Format(),
		Summary: *summary,
	}, nil
}

// ParseAndPreview re-parses a project's source and diffs it against the
// persisted outline. Nothing is written.
func (s *ImportService) ParseAndPreview(ctx context.Context, projectID, path string) (*domain.SyncPreview, error) {
	if err := s.begin(projectID, phaseParse); err != nil {
		return nil, err
	}
	defer s.clearStatus(projectID)
	return s.preview(ctx, projectID, path)
}

func (s *ImportService) preview(ctx context.Context, projectID, path string) (*domain.SyncPreview, error) {
	// 1. Resolve the source
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	recorded, err := s.sources.Get(ctx, projectID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get import source: %w", err)
	}
	if path == "" {
		if recorded == nil {
			return nil, domain.ErrNoImportSource
		}
		path = recorded.Path
	}
	if path, err = filepath.Abs(path); err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	var format domain.Format
	if recorded != nil && recorded.Path == path {
		format = recorded.Format
	}
	parser, err := s.parserFor(path, format)
	if err != nil {
		return nil, err
	}

	// 2. Parse
	logger.Section("Reimport preview")
	src, err := s.parse(ctx, parser, path, domain.ErrSourceMissing)
	if err != nil {
		return nil, err
	}

	// 3. Diff
	s.setPhase(projectID, phaseDiff)
	tree, err := s.store.GetProjectTree(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project tree: %w", err)
	}
	preview, err := Diff(ctx, src.parsed, tree)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	preview.SourcePath = src.path
	preview.Checksum = src.checksum

	logger.Info("Reimport preview for project %s: %d additions, %d changes, %d warnings",
		projectID, len(preview.Additions), len(preview.Changes), len(preview.Warnings))
	return preview, nil
}

// ApplyPreview writes the approved items of a preview atomically. Once the
// project lock is held the write runs to completion regardless of ctx.
func (s *ImportService) ApplyPreview(
	ctx context.Context,
	projectID string,
	preview *domain.SyncPreview,
	approved []string,
) (*domain.ReimportSummary, error) {
	if preview == nil {
		return nil, fmt.Errorf("%w: nil preview", domain.ErrInvalidInput)
	}
	if preview.ProjectID != projectID {
		return nil, fmt.Errorf("%w: preview belongs to project %q", domain.ErrInvalidInput, preview.ProjectID)
	}
	if err := s.begin(projectID, phaseApply); err != nil {
		return nil, err
	}
	defer s.clearStatus(projectID)
	return s.apply(ctx, projectID, preview, approved)
}

func (s *ImportService) apply(
	ctx context.Context,
	projectID string,
	preview *domain.SyncPreview,
	approved []string,
) (*domain.ReimportSummary, error) {
	release, err := s.locks.Acquire(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	summary, err := s.applier.Apply(ctx, projectID, preview, approved)
	if err != nil {
		logger.Warn("Reimport apply for project %s failed: %v", projectID, err)
		return nil, err
	}
	if preview.SourcePath != "" {
		s.recordSource(ctx, projectID, preview.SourcePath, preview.Format, preview.Checksum)
	}

	logger.Info("Applied reimport to project %s: %d written, %d prose beats preserved, %d skipped",
		projectID, summary.Total(), summary.ProsePreserved, summary.Skipped)
	return summary, nil
}

// Reimport previews the recorded source and optionally applies everything.
// The project stays marked in flight for the whole operation.
func (s *ImportService) Reimport(
	ctx context.Context,
	projectID string,
	apply bool,
) (*domain.SyncPreview, *domain.ReimportSummary, error) {
	if err := s.begin(projectID, phaseParse); err != nil {
		return nil, nil, err
	}
	defer s.clearStatus(projectID)

	preview, err := s.preview(ctx, projectID, "")
	if err != nil {
		return nil, nil, err
	}
	if !apply {
		return preview, nil, nil
	}

	s.setPhase(projectID, phaseApply)
	summary, err := s.apply(ctx, projectID, preview, nil)
	if err != nil {
		return preview, nil, err
	}
	return preview, summary, nil
}

// Status reports whether an import or reimport is in flight for a project.
func (s *ImportService) Status(_ context.Context, projectID string) (*driving.ImportStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status, ok := s.active[projectID]; ok {
		statusCopy := *status
		return &statusCopy, nil
	}
	return &driving.ImportStatus{ProjectID: projectID}, nil
}

// parsedSource is a successful parse and what it was read from.
type parsedSource struct {
	parsed   *domain.ParsedProject
	path     string
	checksum string
}

// parse reads and parses a source. A missing path is reported with the
// given kind: unreadable for first imports, source missing for reimports.
func (s *ImportService) parse(
	ctx context.Context,
	parser driven.Parser,
	path string,
	missingKind error,
) (*parsedSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewParseError(missingKind, path, err)
		}
		return nil, domain.NewParseError(domain.ErrUnreadable, path, err)
	}

	input := domain.ImportInput{Path: path}
	if parser.IsDirectory() {
		if !info.IsDir() {
			// An index file inside a package stands for the package.
			path = filepath.Dir(path)
		}
		input.Path = path
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.NewParseError(domain.ErrUnreadable, path, err)
		}
		input.Content = data
	}

	checksum, err := sourceChecksum(path)
	if err != nil {
		return nil, domain.NewParseError(domain.ErrUnreadable, path, err)
	}

	parsed, err := parser.Parse(ctx, input)
	if err != nil {
		return nil, err
	}
	return &parsedSource{parsed: parsed, path: path, checksum: checksum}, nil
}

func (s *ImportService) parserFor(path string, format domain.Format) (driven.Parser, error) {
	if format != "" {
		p, err := s.registry.Get(format)
		if err != nil {
			return nil, fmt.Errorf("get parser: %w", err)
		}
		return p, nil
	}
	p, err := s.registry.Detect(path)
	if err != nil {
		return nil, fmt.Errorf("detect format of %s: %w", path, err)
	}
	return p, nil
}

// recordSource stores the import source. The outline is already committed,
// so a failure here only leaves the checksum stale.
func (s *ImportService) recordSource(ctx context.Context, projectID, path string, format domain.Format, checksum string) {
	err := s.sources.Save(ctx, domain.ImportSource{
		ProjectID:  projectID,
		Path:       path,
		Format:     format,
		Checksum:   checksum,
		LastImport: s.now(),
	})
	if err != nil {
		logger.Warn("Failed to record import source for project %s: %v", projectID, err)
	}
}

// begin marks a project in flight, failing if it already is.
func (s *ImportService) begin(projectID, phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[projectID]; ok {
		return fmt.Errorf("project %s: %w", projectID, domain.ErrImportInProgress)
	}
	s.active[projectID] = &driving.ImportStatus{ProjectID: projectID, Running: true, Phase: phase}
	return nil
}

func (s *ImportService) setPhase(projectID, phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.active[projectID]; ok {
		status.Phase = phase
	}
}

func (s *ImportService) clearStatus(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, projectID)
}
