package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quill/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/quill/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/quill/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/quill/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/quill/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quill/internal/core/domain"
)

// headerLines is the height of the title block above the list.
const headerLines = 4

// App is the review screen following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports
	ctx   context.Context

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.ItemList
	statusBar *status.Bar

	projectName string
	preview     *domain.SyncPreview

	// summary is set once the approved items were applied.
	summary *domain.ReimportSummary

	err      error
	applying bool

	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a review screen for a preview. Every item starts approved.
func NewApp(ports *Ports, projectName string, preview *domain.SyncPreview) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if preview == nil {
		return nil, ErrMissingPreview
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		list:        list.NewItemList(s, list.ItemsFromPreview(preview)),
		statusBar:   status.NewBar(s, km),
		projectName: projectName,
		preview:     preview,
	}
	a.syncStatus()
	return a, nil
}

// WithContext sets the context used for apply.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("quill - review " + a.projectName)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.list.SetDimensions(msg.Width, msg.Height-headerLines-2)
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case messages.ApplyCompleted:
		a.applying = false
		if msg.Err != nil {
			a.err = msg.Err
			a.statusBar.SetState(status.StateError)
			a.statusBar.SetMessage(msg.Err.Error())
			return a, nil
		}
		a.summary = msg.Summary
		a.statusBar.SetState(status.StateDone)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.applying {
		return a, nil
	}
	// After apply finished or failed, any key leaves.
	if a.summary != nil || a.err != nil {
		return a, tea.Quit
	}

	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keymap.Up):
		a.list.MoveUp()
	case key.Matches(msg, a.keymap.Down):
		a.list.MoveDown()
	case key.Matches(msg, a.keymap.Toggle):
		a.list.Toggle()
	case key.Matches(msg, a.keymap.All):
		a.list.SetAll(true)
	case key.Matches(msg, a.keymap.None):
		a.list.SetAll(false)
	case key.Matches(msg, a.keymap.Apply):
		if a.list.ApprovedCount() == 0 {
			return a, tea.Quit
		}
		a.applying = true
		a.statusBar.SetState(status.StateApplying)
		return a, a.apply()
	}

	a.syncStatus()
	return a, nil
}

// apply writes the approved keys. It runs off the update loop.
func (a *App) apply() tea.Cmd {
	ctx := a.ctx
	importer := a.ports.Import
	preview := a.preview
	approved := a.list.Approved()

	return func() tea.Msg {
		summary, err := importer.ApplyPreview(ctx, preview.ProjectID, preview, approved)
		return messages.ApplyCompleted{Summary: summary, Err: err}
	}
}

func (a *App) syncStatus() {
	a.statusBar.SetCounts(a.list.ApprovedCount(), a.list.Count())
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Review reimport for " + a.projectName))
	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render(fmt.Sprintf("%s source %s", a.preview.Format, a.preview.SourcePath)))
	b.WriteString("\n")
	if n := len(a.preview.Warnings); n > 0 {
		b.WriteString(a.styles.Warning.Render(fmt.Sprintf("%d warning(s): run 'quill preview' for details", n)))
	}
	b.WriteString("\n\n")

	if a.summary != nil {
		b.WriteString(a.styles.Success.Render(fmt.Sprintf("Applied %d item(s).", a.summary.Total())))
		if a.summary.ProsePreserved > 0 {
			b.WriteString(fmt.Sprintf(" Prose preserved in %d beat(s).", a.summary.ProsePreserved))
		}
	} else {
		b.WriteString(a.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(a.statusBar.View())
	return b.String()
}

// Run starts the review screen and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Summary returns what was applied, or nil if nothing was.
func (a *App) Summary() *domain.ReimportSummary {
	return a.summary
}

// Err returns the apply error, if any.
func (a *App) Err() error {
	return a.err
}

// Approved returns the keys currently approved.
func (a *App) Approved() []string {
	return a.list.Approved()
}

// Applying reports whether an apply is in flight.
func (a *App) Applying() bool {
	return a.applying
}
