package vault

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/quill/internal/core/domain"
)

// frontmatter holds the YAML header of a note.
type frontmatter struct {
	ID       any            `yaml:"id"`
	Title    string         `yaml:"title"`
	Summary  string         `yaml:"summary"`
	Synopsis string         `yaml:"synopsis"`
	Order    *float64       `yaml:"order"`
	Type     string         `yaml:"type"`
	Extra    map[string]any `yaml:",inline"`
}

// note is one markdown file of the vault.
type note struct {
	// rel is the slash-separated path relative to the vault root.
	rel  string
	name string
	meta frontmatter
	body string
}

var (
	wikilink = regexp.MustCompile(`\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|[^\]]*)?\]\]`)
	listMark = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.*)$`)
)

// splitFrontmatter separates a leading "---" YAML block from the body.
func splitFrontmatter(text string) (header, body string, err error) {
	if !strings.HasPrefix(text, "---\n") && text != "---" {
		return "", text, nil
	}
	rest := strings.TrimPrefix(text, "---\n")
	if strings.HasPrefix(rest, "---\n") || rest == "---" {
		return "", strings.TrimPrefix(rest, "---"), nil
	}
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", "", errors.New("unterminated frontmatter")
	}
	header = rest[:end]
	body = rest[end+len("\n---"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if strings.TrimSpace(body[:nl]) != "" {
			return "", "", errors.New("unterminated frontmatter")
		}
		body = body[nl+1:]
	} else if strings.TrimSpace(body) != "" {
		return "", "", errors.New("unterminated frontmatter")
	} else {
		body = ""
	}
	return header, body, nil
}

func parseNote(rel, name, text string) (*note, error) {
	header, body, err := splitFrontmatter(text)
	if err != nil {
		return nil, err
	}
	n := &note{rel: rel, name: name, body: body}
	if strings.TrimSpace(header) != "" {
		if err := yaml.Unmarshal([]byte(header), &n.meta); err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
	}
	return n, nil
}

func (n *note) id() string {
	if n.meta.ID == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(n.meta.ID))
}

func (n *note) title() string {
	if t := strings.TrimSpace(n.meta.Title); t != "" {
		return t
	}
	return n.name
}

func (n *note) summary() string {
	if s := strings.TrimSpace(n.meta.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(n.meta.Synopsis)
}

// listItems returns the non-empty list items of the body, outside code fences.
func (n *note) listItems() []string {
	var items []string
	fenced := false
	for _, line := range strings.Split(n.body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fenced = !fenced
			continue
		}
		if fenced {
			continue
		}
		if m := listMark.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// links returns the distinct wikilink targets of the body, lower-cased.
func (n *note) links() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range wikilink.FindAllStringSubmatch(n.body, -1) {
		target := strings.ToLower(strings.TrimSpace(m[1]))
		if i := strings.LastIndex(target, "/"); i >= 0 {
			target = target[i+1:]
		}
		if target != "" && !seen[target] {
			seen[target] = true
			out = append(out, target)
		}
	}
	return out
}

// attributes flattens the remaining frontmatter keys to strings.
func (n *note) attributes() map[string]string {
	attrs := make(map[string]string, len(n.meta.Extra)+2)
	for k, v := range n.meta.Extra {
		if s := scalar(v); s != "" {
			attrs[k] = s
		}
	}
	if s := n.summary(); s != "" {
		attrs["summary"] = s
	}
	if body := strings.TrimSpace(n.body); body != "" {
		attrs["notes"] = body
	}
	return attrs
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalar(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+scalar(t[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// referenceKind maps a note type or folder name to a reference kind.
func referenceKind(name string) (domain.ReferenceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "character", "characters", "people", "person", "cast":
		return domain.ReferenceCharacter, true
	case "location", "locations", "place", "places", "setting", "settings":
		return domain.ReferenceLocation, true
	case "item", "items", "object", "objects":
		return domain.ReferenceItem, true
	}
	return "", false
}

// sortNotes orders notes by frontmatter order, then path. Notes without an
// order follow the ordered ones.
func sortNotes(notes []*note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i].meta.Order, notes[j].meta.Order
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return notes[i].rel < notes[j].rel
	})
}
