package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
)

// runCommand executes the root command with args and stdin, returning
// everything written to stdout and stderr.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// withServices configures s for the duration of the test.
func withServices(t *testing.T, s Services) {
	t.Helper()
	prev := Services{
		Import:   importService,
		Project:  projectService,
		Settings: settingsService,
		Monitor:  sourceMonitor,
	}
	Configure(s)
	t.Cleanup(func() { Configure(prev) })
}

type mockImportService struct {
	importFn func(req driving.ImportRequest) (*driving.ImportResult, error)
	requests []driving.ImportRequest

	preview      *domain.SyncPreview
	previewErr   error
	previewPaths []string

	summary    *domain.ReimportSummary
	applyErr   error
	applyCalls int
	approved   []string

	status *driving.ImportStatus
}

func (m *mockImportService) Import(_ context.Context, req driving.ImportRequest) (*driving.ImportResult, error) {
	m.requests = append(m.requests, req)
	if m.importFn == nil {
		return nil, domain.ErrNotFound
	}
	return m.importFn(req)
}

func (m *mockImportService) ParseAndPreview(_ context.Context, _, path string) (*domain.SyncPreview, error) {
	m.previewPaths = append(m.previewPaths, path)
	return m.preview, m.previewErr
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
	return m.preview, m.summary, m.previewErr
}

func (m *mockImportService) Status(_ context.Context, projectID string) (*driving.ImportStatus, error) {
	if m.status == nil {
		return &driving.ImportStatus{ProjectID: projectID}, nil
	}
	return m.status, nil
}

type mockProjectService struct {
	projects []domain.Project
	tree     *domain.ProjectTree
	err      error

	prose     *string
	proseBeat string
	kind      domain.ItemKind
	nodeID    string
	archived  bool
	locked    *bool
	position  int
	deleted   string
}

func (m *mockProjectService) List(_ context.Context) ([]domain.Project, error) {
	return m.projects, nil
}

func (m *mockProjectService) Tree(_ context.Context, _ string) (*domain.ProjectTree, error) {
	return m.tree, m.err
}

func (m *mockProjectService) SetProse(_ context.Context, _, beatID string, prose *string) error {
	m.proseBeat = beatID
	m.prose = prose
	return m.err
}

func (m *mockProjectService) Archive(_ context.Context, _ string, kind domain.ItemKind, id string) error {
	m.kind, m.nodeID, m.archived = kind, id, true
	return m.err
}

func (m *mockProjectService) SetLocked(_ context.Context, _ string, kind domain.ItemKind, id string, locked bool) error {
	m.kind, m.nodeID, m.locked = kind, id, &locked
	return m.err
}

func (m *mockProjectService) Reorder(_ context.Context, _ string, kind domain.ItemKind, id string, position int) error {
	m.kind, m.nodeID, m.position = kind, id, position
	return m.err
}

func (m *mockProjectService) Delete(_ context.Context, projectID string) error {
	m.deleted = projectID
	return m.err
}

type mockSettingsService struct {
	settings *domain.AppSettings
	values   map[string]string
	setErr   error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.settings == nil {
		s := domain.DefaultAppSettings()
		return &s, nil
	}
	return m.settings, nil
}

func (m *mockSettingsService) Value(key string) (string, bool, error) {
	if _, ok := domain.LookupSetting(key); !ok {
		return "", false, domain.ErrInvalidInput
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockSettingsService) Set(key, raw string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = raw
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

type mockMonitor struct {
	events []domain.SourceChanged
	err    error
}

func (m *mockMonitor) Run(ctx context.Context, events chan<- domain.SourceChanged) error {
	for _, ev := range m.events {
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func sampleProjects() []domain.Project {
	return []domain.Project{
		{ID: "p1", Name: "Harbour Lights"},
		{ID: "p2", Name: "Salt Road"},
	}
}

func samplePreview() *domain.SyncPreview {
	return &domain.SyncPreview{
		ProjectID:  "p1",
		Format:     domain.FormatPlottr,
		SourcePath: "/books/harbour.pltr",
		Checksum:   "abc123",
		Additions: []domain.SyncAddition{
			{Key: "c2", Kind: domain.KindChapter, Title: "Act Three"},
			{Key: "c0.s1", Kind: domain.KindScene, Title: "Storm", ParentTitle: "Act One", ParentID: "ch1"},
		},
		Changes: []domain.SyncChange{
			{Key: "chapter:ch2:title", Kind: domain.KindChapter, Field: domain.FieldTitle, Current: "Act 2", Proposed: "Act Two", TargetID: "ch2"},
		},
		Warnings: []domain.SyncWarning{
			{Kind: domain.WarningPossibleRename, ItemKind: domain.KindScene, Title: "Harbour", Message: "may be a rename of \"Docks\""},
		},
	}
}
