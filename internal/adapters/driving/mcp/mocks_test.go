package mcp

import (
	"context"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
)

// mockImportService is a mock implementation of driving.ImportService.
type mockImportService struct {
	preview  *domain.SyncPreview
	summary  *domain.ReimportSummary
	err      error
	applyErr error

	// approved records the keys passed to ApplyPreview.
	approved   []string
	applyCalls int
}

func (m *mockImportService) Import(_ context.Context, _ driving.ImportRequest) (*driving.ImportResult, error) {
	return nil, m.err
}

func (m *mockImportService) ParseAndPreview(_ context.Context, _, _ string) (*domain.SyncPreview, error) {
	return m.preview, m.err
}

func (m *mockImportService) ApplyPreview(
	_ context.Context,
	_ string,
	_ *domain.SyncPreview,
	approved []string,
) (*domain.ReimportSummary, error) {
	m.applyCalls++
	m.approved = approved
	return m.summary, m.applyErr
}

func (m *mockImportService) Reimport(_ context.Context, _ string, _ bool) (*domain.SyncPreview, *domain.ReimportSummary, error) {
	return m.preview, m.summary, m.err
}

func (m *mockImportService) Status(_ context.Context, projectID string) (*driving.ImportStatus, error) {
	return &driving.ImportStatus{ProjectID: projectID}, nil
}

// mockProjectService is a mock implementation of driving.ProjectService.
type mockProjectService struct {
	projects []domain.Project
	tree     *domain.ProjectTree
	err      error
}

func (m *mockProjectService) List(_ context.Context) ([]domain.Project, error) {
	return m.projects, m.err
}

func (m *mockProjectService) Tree(_ context.Context, _ string) (*domain.ProjectTree, error) {
	return m.tree, m.err
}

func (m *mockProjectService) SetProse(_ context.Context, _, _ string, _ *string) error {
	return m.err
}

func (m *mockProjectService) Archive(_ context.Context, _ string, _ domain.ItemKind, _ string) error {
	return m.err
}

func (m *mockProjectService) SetLocked(_ context.Context, _ string, _ domain.ItemKind, _ string, _ bool) error {
	return m.err
}

func (m *mockProjectService) Reorder(_ context.Context, _ string, _ domain.ItemKind, _ string, _ int) error {
	return m.err
}

func (m *mockProjectService) Delete(_ context.Context, _ string) error {
	return m.err
}

// samplePreview has one addition, one change and one warning.
func samplePreview() *domain.SyncPreview {
	return &domain.SyncPreview{
		ProjectID:  "p1",
		Format:     domain.FormatPlottr,
		SourcePath: "/books/novel.pltr",
		Checksum:   "sum-1",
		Additions: []domain.SyncAddition{
			{Key: "c3", Kind: domain.KindChapter, Title: "Act 4"},
		},
		Changes: []domain.SyncChange{
			{Key: "chapter:ch-2:title", Kind: domain.KindChapter, Field: domain.FieldTitle,
				Current: "Act 2", Proposed: "Act Two", TargetID: "ch-2"},
		},
		Warnings: []domain.SyncWarning{
			{Kind: domain.WarningPossibleRename, ItemKind: domain.KindScene, Title: "Harbour", Message: "may be a rename"},
		},
	}
}

func newTestServer(t interface {
	Helper()
	Fatalf(string, ...any)
}, imp *mockImportService, proj *mockProjectService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Import: imp, Project: proj})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return server
}
