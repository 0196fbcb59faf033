package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/quill/internal/core/domain"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// DecodeText converts source bytes to text with normalised line endings.
// UTF-16 input is accepted when it carries a BOM. Anything else must be
// valid UTF-8 without NUL bytes, otherwise an ErrEncoding ParseError is
// returned.
func DecodeText(path string, data []byte) (string, error) {
	if bytes.HasPrefix(data, utf16LEBOM) || bytes.HasPrefix(data, utf16BEBOM) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", domain.NewParseError(domain.ErrEncoding, path, err)
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return "", domain.NewParseError(domain.ErrEncoding, path, errors.New("invalid UTF-8"))
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", domain.NewParseError(domain.ErrEncoding, path, errors.New("NUL byte in text"))
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

// richNode is a Slate-style rich text node.
type richNode struct {
	Type     string     `json:"type"`
	Text     string     `json:"text"`
	Children []richNode `json:"children"`
}

// FlattenRichText converts rich text to plain text. It accepts a JSON
// string, a Slate-style node array, or null. Block nodes are separated
// by newlines; inline runs are concatenated.
func FlattenRichText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var nodes []richNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return ""
	}
	return strings.TrimSpace(joinBlocks(nodes))
}

func joinBlocks(nodes []richNode) string {
	var blocks []string
	for _, n := range nodes {
		if t := strings.TrimSpace(n.plain()); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n")
}

func (n richNode) plain() string {
	if len(n.Children) == 0 {
		return n.Text
	}
	for _, c := range n.Children {
		if c.Type != "" {
			return joinBlocks(n.Children)
		}
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.plain())
	}
	return b.String()
}

// ProjectNameFromPath derives a readable project name from a file or
// directory name.
func ProjectNameFromPath(path string) string {
	name := filepath.Base(filepath.Clean(path))
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}

// CollapseSpace trims text and collapses internal whitespace runs to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsSingleSentence reports whether text is one sentence: non-empty, on one
// line, with no sentence terminator before its final character.
func IsSingleSentence(text string) bool {
	t := CollapseSpace(text)
	if t == "" || strings.Contains(strings.TrimSpace(text), "\n") {
		return false
	}
	body := strings.TrimRight(t, ".!?\"')")
	return !strings.ContainsAny(body, ".!?")
}
