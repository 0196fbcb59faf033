// Package list provides the approval list component for the review TUI.
package list

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quill/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quill/internal/core/domain"
)

// Item is one approvable entry of a preview.
type Item struct {
	Key      string
	Added    bool
	Label    string
	Detail   string
	Approved bool
}

// ItemsFromPreview lists additions then changes, all approved.
func ItemsFromPreview(p *domain.SyncPreview) []Item {
	items := make([]Item, 0, len(p.Additions)+len(p.Changes))
	for i := range p.Additions {
		a := &p.Additions[i]
		detail := ""
		if a.ParentTitle != "" {
			detail = "in " + a.ParentTitle
		}
		items = append(items, Item{
			Key:      a.Key,
			Added:    true,
			Label:    fmt.Sprintf("%s %q", a.Kind, a.Title),
			Detail:   detail,
			Approved: true,
		})
	}
	for i := range p.Changes {
		c := &p.Changes[i]
		items = append(items, Item{
			Key:      c.Key,
			Label:    fmt.Sprintf("%s %s", c.Kind, c.Field),
			Detail:   fmt.Sprintf("%q → %q", c.Current, c.Proposed),
			Approved: true,
		})
	}
	return items
}

// ItemList displays preview items with a checkbox each.
type ItemList struct {
	items    []Item
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewItemList creates a new item list component.
func NewItemList(s *styles.Styles, items []Item) *ItemList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ItemList{
		items:  items,
		styles: s,
		width:  80,
		height: 20,
	}
}

// Init initialises the item list.
func (l *ItemList) Init() tea.Cmd {
	return nil
}

// View renders the visible window of the list.
func (l *ItemList) View() string {
	if len(l.items) == 0 {
		return l.styles.Muted.Render("No changes detected.")
	}

	// Each item takes two lines.
	visible := (l.height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.items))

	lines := make([]string, 0, (end-start)*2)
	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.items[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *ItemList) renderItem(index int, item *Item) string {
	box := "[ ]"
	if item.Approved {
		box = "[x]"
	}
	sign := "~"
	if item.Added {
		sign = "+"
	}

	maxLen := max(l.width-12, 10)
	head := fmt.Sprintf("%s %s %s", box, sign, clip(item.Label, maxLen))

	switch {
	case index == l.selected:
		head = l.styles.Selected.Render("> " + head)
	case item.Added:
		head = l.styles.Added.Render("  " + head)
	default:
		head = l.styles.Changed.Render("  " + head)
	}

	detail := l.styles.Muted.Render("      " + clip(item.Key+"  "+item.Detail, maxLen))
	return head + "\n" + detail
}

// Items returns the items with their current approval state.
func (l *ItemList) Items() []Item {
	return l.items
}

// Approved returns the keys of approved items, never nil.
func (l *ItemList) Approved() []string {
	keys := make([]string, 0, len(l.items))
	for _, item := range l.items {
		if item.Approved {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

// ApprovedCount returns the number of approved items.
func (l *ItemList) ApprovedCount() int {
	n := 0
	for _, item := range l.items {
		if item.Approved {
			n++
		}
	}
	return n
}

// Toggle flips approval of the highlighted item.
func (l *ItemList) Toggle() {
	if l.selected < len(l.items) {
		l.items[l.selected].Approved = !l.items[l.selected].Approved
	}
}

// SetAll approves or rejects every item.
func (l *ItemList) SetAll(approved bool) {
	for i := range l.items {
		l.items[i].Approved = approved
	}
}

// Selected returns the index of the highlighted item.
func (l *ItemList) Selected() int {
	return l.selected
}

// MoveUp moves selection up.
func (l *ItemList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ItemList) MoveDown() {
	if l.selected < len(l.items)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ItemList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of items.
func (l *ItemList) Count() int {
	return len(l.items)
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
