package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/quill/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quill/internal/core/domain"
)

const displayWidth = 60

func renderPreview(w io.Writer, projectName string, p *domain.SyncPreview) {
	s := styles.NewStylesFor(w, nil)

	fmt.Fprintln(w, s.Title.Render("Reimport preview for "+projectName))
	fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("%s source %s", p.Format, p.SourcePath)))
	fmt.Fprintln(w)

	if p.IsEmpty() {
		fmt.Fprintln(w, "No changes detected.")
	}

	if len(p.Additions) > 0 {
		fmt.Fprintln(w, s.Subtitle.Render(fmt.Sprintf("Additions (%d)", len(p.Additions))))
		for i := range p.Additions {
			a := &p.Additions[i]
			line := fmt.Sprintf("  + [%s] %s %q", a.Key, a.Kind, truncate(a.Title, displayWidth))
			if a.ParentTitle != "" {
				line += fmt.Sprintf(" in %q", truncate(a.ParentTitle, displayWidth))
			}
			fmt.Fprintln(w, s.Added.Render(line))
		}
		fmt.Fprintln(w)
	}

	if len(p.Changes) > 0 {
		fmt.Fprintln(w, s.Subtitle.Render(fmt.Sprintf("Changes (%d)", len(p.Changes))))
		for i := range p.Changes {
			c := &p.Changes[i]
			fmt.Fprintln(w, s.Changed.Render(fmt.Sprintf("  ~ [%s] %s %s", c.Key, c.Kind, c.Field)))
			fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf("      was: %q", truncate(c.Current, displayWidth))))
			fmt.Fprintf(w, "      now: %q\n", truncate(c.Proposed, displayWidth))
		}
		fmt.Fprintln(w)
	}

	if len(p.Warnings) > 0 {
		fmt.Fprintln(w, s.Subtitle.Render(fmt.Sprintf("Warnings (%d)", len(p.Warnings))))
		for _, warn := range p.Warnings {
			fmt.Fprintln(w, s.Warning.Render(fmt.Sprintf("  ! %s %q: %s", warn.ItemKind, warn.Title, warn.Message)))
		}
		fmt.Fprintln(w)
	}
}

func renderSummary(w io.Writer, sum *domain.ReimportSummary) {
	s := styles.NewStylesFor(w, nil)

	if sum.Total() == 0 {
		fmt.Fprintln(w, "Nothing applied.")
	} else {
		fmt.Fprintln(w, s.Success.Render(fmt.Sprintf("Applied %d item(s)", sum.Total())))
	}

	rows := []struct {
		label          string
		added, updated int
	}{
		{"chapters", sum.ChaptersAdded, sum.ChaptersUpdated},
		{"scenes", sum.ScenesAdded, sum.ScenesUpdated},
		{"beats", sum.BeatsAdded, sum.BeatsUpdated},
		{"references", sum.ReferencesAdded, sum.ReferencesUpdated},
		{"links", sum.LinksAdded, 0},
	}
	for _, r := range rows {
		if r.added == 0 && r.updated == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-11s %d added, %d updated\n", r.label+":", r.added, r.updated)
	}

	if sum.ProsePreserved > 0 {
		fmt.Fprintf(w, "Prose preserved in %d beat(s)\n", sum.ProsePreserved)
	}
	if sum.Skipped > 0 {
		fmt.Fprintln(w, s.Warning.Render(fmt.Sprintf("Skipped %d item(s) that could not be applied", sum.Skipped)))
	}
}

func renderTree(w io.Writer, tree *domain.ProjectTree, showArchived bool) {
	s := styles.NewStylesFor(w, nil)

	fmt.Fprintln(w, s.Title.Render(tree.Project.Name)+" "+s.Muted.Render("("+tree.Project.ID+")"))

	for i := range tree.Chapters {
		ch := &tree.Chapters[i]
		if ch.Archived && !showArchived {
			continue
		}
		fmt.Fprintf(w, "%d. %s%s\n", ch.Position+1, ch.Title, nodeMarks(s, ch.ID, ch.Archived, ch.Locked))

		for j := range ch.Scenes {
			sc := &ch.Scenes[j]
			if sc.Archived && !showArchived {
				continue
			}
			fmt.Fprintf(w, "   %d. %s%s\n", sc.Position+1, sc.Title, nodeMarks(s, sc.ID, sc.Archived, sc.Locked))
			if sc.Synopsis != "" {
				fmt.Fprintln(w, "      "+s.Muted.Render(truncate(sc.Synopsis, displayWidth)))
			}

			for k := range sc.Beats {
				b := &sc.Beats[k]
				if b.Archived && !showArchived {
					continue
				}
				line := fmt.Sprintf("      - %s%s", truncate(b.Content, displayWidth), nodeMarks(s, b.ID, b.Archived, b.Locked))
				if b.Prose != nil {
					line += " " + s.Added.Render("(prose)")
				}
				fmt.Fprintln(w, line)
			}
		}
	}

	if len(tree.References) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Subtitle.Render("References"))
		for _, ref := range tree.References {
			fmt.Fprintf(w, "  %s: %s %s\n", ref.Kind, ref.Name, s.Muted.Render("["+ref.ID+"]"))
		}
	}
}

func nodeMarks(s *styles.Styles, id string, archived, locked bool) string {
	marks := " " + s.Muted.Render("["+id+"]")
	if locked {
		marks += " " + s.Changed.Render("(locked)")
	}
	if archived {
		marks += " " + s.Muted.Render("(archived)")
	}
	return marks
}

// truncate shortens s to at most n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
