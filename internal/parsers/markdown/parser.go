// Package markdown parses plain heading/list outlines.
//
// The file contract is line based:
//
//	# Chapter        level-1 heading, starts a chapter from any state
//	## Scene         level-2 heading, starts a scene inside an open chapter
//	- beat           list item or bare paragraph, a beat inside an open scene
//	### note         level-3+ heading, appended to the nearest open beat
//
// Lines that arrive before the structure they need are dropped. The format
// has no native identifiers, so every SourceID is nil.
package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driven"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// extensions are the file suffixes Detect accepts.
var extensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Parser handles plain markdown outlines.
type Parser struct{}

// New creates a new markdown outline parser.
func New() *Parser {
	return &Parser{}
}

// Format returns domain.FormatMarkdown.
func (p *Parser) Format() domain.Format {
	return domain.FormatMarkdown
}

// Detect accepts .md, .markdown and .txt files.
func (p *Parser) Detect(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// IsDirectory returns false; markdown outlines are single files.
func (p *Parser) IsDirectory() bool {
	return false
}

// Parse scans the outline once, left to right.
func (p *Parser) Parse(ctx context.Context, input domain.ImportInput) (*domain.ParsedProject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := parsers.ReadInput(input)
	if err != nil {
		return nil, err
	}
	text, err := parsers.DecodeText(input.Path, data)
	if err != nil {
		return nil, err
	}

	s := &scanner{}
	for n, line := range strings.Split(text, "\n") {
		s.feed(n+1, line)
	}

	project := &domain.ParsedProject{
		Name:     parsers.ProjectNameFromPath(input.Path),
		Format:   domain.FormatMarkdown,
		Chapters: s.chapters,
	}
	if len(project.Chapters) == 0 {
		project.Chapters = []domain.ParsedChapter{{Title: defaultTitle("Chapter", 0)}}
	}

	c, sc, b := project.Counts()
	logger.Debug("markdown: %s parsed to %d chapters, %d scenes, %d beats (%d lines dropped)",
		input.Path, c, sc, b, s.dropped)
	return project, nil
}

// state is the position of the scanner in the outline hierarchy.
type state int

const (
	stateNoChapter state = iota
	stateInChapter
	stateInScene
)

// scanner is the three-state outline machine.
type scanner struct {
	state    state
	chapters []domain.ParsedChapter
	fence    string
	dropped  int
}

func (s *scanner) feed(lineNo int, raw string) {
	line := strings.TrimSpace(raw)

	if s.fence != "" {
		if strings.HasPrefix(line, s.fence) {
			s.fence = ""
		}
		return
	}
	if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
		s.fence = line[:3]
		return
	}
	if line == "" || isRule(line) {
		return
	}

	if level, title, ok := heading(line); ok {
		switch {
		case level == 1:
			s.openChapter(title)
		case level == 2:
			s.openScene(lineNo, title)
		default:
			s.appendNote(lineNo, title)
		}
		return
	}

	content, isItem := listItem(line)
	if isItem && content == "" {
		return
	}
	if !isItem {
		content = strings.TrimSpace(strings.TrimPrefix(line, ">"))
		if content == "" {
			return
		}
	}
	s.addBeat(lineNo, content)
}

func (s *scanner) openChapter(title string) {
	if title == "" {
		title = defaultTitle("Chapter", len(s.chapters))
	}
	s.chapters = append(s.chapters, domain.ParsedChapter{Title: title})
	s.state = stateInChapter
}

func (s *scanner) openScene(lineNo int, title string) {
	if s.state == stateNoChapter {
		s.drop(lineNo, "scene heading without a chapter")
		return
	}
	ch := &s.chapters[len(s.chapters)-1]
	if title == "" {
		title = defaultTitle("Scene", len(ch.Scenes))
	}
	ch.Scenes = append(ch.Scenes, domain.ParsedScene{Title: title})
	s.state = stateInScene
}

func (s *scanner) addBeat(lineNo int, content string) {
	if s.state != stateInScene {
		s.drop(lineNo, "beat without a scene")
		return
	}
	sc := s.scene()
	sc.Beats = append(sc.Beats, domain.ParsedBeat{Content: content})
}

// appendNote attaches a level-3+ heading to the last beat of the open
// scene, or starts the scene's first beat with it.
func (s *scanner) appendNote(lineNo int, text string) {
	if s.state != stateInScene {
		s.drop(lineNo, "sub-heading without a scene")
		return
	}
	if text == "" {
		return
	}
	sc := s.scene()
	if len(sc.Beats) == 0 {
		sc.Beats = append(sc.Beats, domain.ParsedBeat{Content: text})
		return
	}
	last := &sc.Beats[len(sc.Beats)-1]
	last.Content += "\n" + text
}

func (s *scanner) scene() *domain.ParsedScene {
	ch := &s.chapters[len(s.chapters)-1]
	return &ch.Scenes[len(ch.Scenes)-1]
}

func (s *scanner) drop(lineNo int, reason string) {
	s.dropped++
	logger.Debug("markdown: line %d dropped: %s", lineNo, reason)
}

// heading parses an ATX heading. "#tag" without a space is not a heading.
func heading(line string) (level int, title string, ok bool) {
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	title = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	return level, title, true
}

// listItem recognises bullet ("- ", "* ", "+ ") and ordered ("1. ", "1) ")
// items. A bare marker is an empty item.
func listItem(line string) (content string, ok bool) {
	switch line {
	case "-", "*", "+":
		return "", true
	}
	if len(line) >= 2 && strings.ContainsRune("-*+", rune(line[0])) && (line[1] == ' ' || line[1] == '\t') {
		return checkbox(strings.TrimSpace(line[2:])), true
	}

	digits := 0
	for digits < len(line) && digits < 9 && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits >= len(line) || (line[digits] != '.' && line[digits] != ')') {
		return "", false
	}
	rest := line[digits+1:]
	if rest == "" {
		return "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return checkbox(strings.TrimSpace(rest)), true
}

// checkbox strips a task-list marker.
func checkbox(s string) string {
	for _, box := range []string{"[ ]", "[x]", "[X]"} {
		if strings.HasPrefix(s, box) {
			return strings.TrimSpace(s[len(box):])
		}
	}
	return s
}

// isRule reports a thematic break such as "---" or "* * *".
func isRule(line string) bool {
	compact := strings.ReplaceAll(strings.ReplaceAll(line, " ", ""), "\t", "")
	if len(compact) < 3 {
		return false
	}
	marker := compact[0]
	if marker != '-' && marker != '*' && marker != '_' {
		return false
	}
	return strings.Count(compact, string(marker)) == len(compact)
}

func defaultTitle(prefix string, index int) string {
	return fmt.Sprintf("%s %d", prefix, index+1)
}
