package markdown

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/core/domain"
)

func parse(t *testing.T, content string) *domain.ParsedProject {
	t.Helper()
	project, err := New().Parse(context.Background(), domain.ImportInput{
		Path:    "/books/outline.md",
		Content: []byte(content),
	})
	require.NoError(t, err)
	require.NotNil(t, project)
	return project
}

func counts(p *domain.ParsedProject) []int {
	c, s, b := p.Counts()
	return []int{c, s, b}
}

func TestParser_Metadata(t *testing.T) {
	p := New()
	assert.Equal(t, domain.FormatMarkdown, p.Format())
	assert.False(t, p.IsDirectory())
	assert.True(t, p.Detect("/a/Outline.MD"))
	assert.True(t, p.Detect("notes.txt"))
	assert.True(t, p.Detect("book.markdown"))
	assert.False(t, p.Detect("book.pltr"))
	assert.False(t, p.Detect("book.scriv"))
}

func TestParse_Basic(t *testing.T) {
	project := parse(t, `# Act 1
## Opening
- Hero wakes up
* Hero meets mentor
The call arrives.
## Refusal
1. Hero says no

# Act 2
## Midpoint
+ Twist
`)

	assert.Equal(t, "outline", project.Name)
	assert.Equal(t, domain.FormatMarkdown, project.Format)
	require.Len(t, project.Chapters, 2)

	act1 := project.Chapters[0]
	assert.Equal(t, "Act 1", act1.Title)
	require.Len(t, act1.Scenes, 2)
	assert.Equal(t, "Opening", act1.Scenes[0].Title)
	assert.Equal(t, []domain.ParsedBeat{
		{Content: "Hero wakes up"},
		{Content: "Hero meets mentor"},
		{Content: "The call arrives."},
	}, act1.Scenes[0].Beats)
	assert.Equal(t, "Hero says no", act1.Scenes[1].Beats[0].Content)

	assert.Equal(t, "Twist", project.Chapters[1].Scenes[0].Beats[0].Content)
}

func TestParse_NoSourceIDs(t *testing.T) {
	project := parse(t, "# A\n## B\n- c\n")
	ch := project.Chapters[0]
	assert.Nil(t, ch.SourceID)
	assert.Nil(t, ch.Scenes[0].SourceID)
	assert.Nil(t, ch.Scenes[0].Beats[0].SourceID)
}

func TestParse_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []int
	}{
		{"empty input", "", []int{1, 0, 0}},
		{"whitespace only", "\n\n   \n", []int{1, 0, 0}},
		{"only level-2 headings", "## One\n## Two\n", []int{1, 0, 0}},
		{"bare dash", "# A\n## S\n- \n", []int{1, 1, 0}},
		{"bare markers", "# A\n## S\n-\n*\n+\n1.\n- [ ]\n", []int{1, 1, 0}},
		{"beats before any scene", "# A\n- lost\nlost too\n## S\n- kept\n", []int{1, 1, 1}},
		{"beats before any chapter", "- lost\nparagraph\n# A\n", []int{1, 0, 0}},
		{"level-1 replaces open scene", "# A\n## S\n# B\n- lost\n", []int{2, 1, 0}},
		{"horizontal rules ignored", "# A\n## S\n---\n* * *\n- beat\n", []int{1, 1, 1}},
		{"fenced code ignored", "# A\n## S\n```\n- not a beat\n# not a chapter\n```\n- beat\n", []int{1, 1, 1}},
		{"hashtag is a paragraph", "# A\n## S\n#tag line\n", []int{1, 1, 1}},
		{"seven hashes is a paragraph", "# A\n## S\n####### deep\n", []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, counts(parse(t, tt.content)))
		})
	}
}

func TestParse_DefaultTitles(t *testing.T) {
	project := parse(t, "")
	assert.Equal(t, "Chapter 1", project.Chapters[0].Title)

	project = parse(t, "# Prologue\n#\n##\n")
	require.Len(t, project.Chapters, 2)
	assert.Equal(t, "Chapter 2", project.Chapters[1].Title)
	assert.Equal(t, "Scene 1", project.Chapters[1].Scenes[0].Title)
}

func TestParse_DeepHeadingsAreBeatText(t *testing.T) {
	project := parse(t, `# A
## S
### Mood: tense
- Door opens
#### Lighting: dim
`)

	beats := project.Chapters[0].Scenes[0].Beats
	require.Len(t, beats, 2)
	assert.Equal(t, "Mood: tense", beats[0].Content)
	assert.Equal(t, "Door opens\nLighting: dim", beats[1].Content)

	// No scene open: dropped.
	assert.Equal(t, []int{1, 0, 0}, counts(parse(t, "# A\n### orphan\n")))
}

func TestParse_HeadingTrailingHashes(t *testing.T) {
	project := parse(t, "# Act 1 ##\n")
	assert.Equal(t, "Act 1", project.Chapters[0].Title)
}

func TestParse_CRLFAndBOM(t *testing.T) {
	content := "\uFEFF# A\r\n## S\r\n- beat\r\n"
	project := parse(t, content)
	assert.Equal(t, []int{1, 1, 1}, counts(project))
	assert.Equal(t, "A", project.Chapters[0].Title)
	assert.Equal(t, "beat", project.Chapters[0].Scenes[0].Beats[0].Content)
}

func TestParse_EncodingError(t *testing.T) {
	_, err := New().Parse(context.Background(), domain.ImportInput{
		Path:    "bad.md",
		Content: []byte{'#', ' ', 0xFF, 0xFE, 0x00},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestParse_ReadsPathWhenNoContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my-book.md")
	require.NoError(t, os.WriteFile(path, []byte("# One\n## Two\n- three\n"), 0o600))

	project, err := New().Parse(context.Background(), domain.ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "my book", project.Name)
	assert.Equal(t, []int{1, 1, 1}, counts(project))
}

func TestParse_Unreadable(t *testing.T) {
	project, err := New().Parse(context.Background(), domain.ImportInput{
		Path: filepath.Join(t.TempDir(), "missing.md"),
	})
	assert.Nil(t, project)
	assert.ErrorIs(t, err, domain.ErrUnreadable)
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Parse(ctx, domain.ImportInput{Path: "a.md", Content: []byte("# A")})
	assert.ErrorIs(t, err, context.Canceled)
}

// Scenario A: 5 chapters with 5, 2, 4, 7, 2 scenes.
func TestParse_ScenarioA(t *testing.T) {
	var b strings.Builder
	for c, scenes := range []int{5, 2, 4, 7, 2} {
		fmt.Fprintf(&b, "# Chapter %d\n\n", c+1)
		for s := 0; s < scenes; s++ {
			fmt.Fprintf(&b, "## Scene %d.%d\n", c+1, s+1)
			fmt.Fprintf(&b, "- Beat for scene %d.%d\n\n", c+1, s+1)
		}
	}

	project := parse(t, b.String())

	require.Len(t, project.Chapters, 5)
	_, scenes, _ := project.Counts()
	assert.Equal(t, 20, scenes)

	expected := []int{5, 2, 4, 7, 2}
	for i, ch := range project.Chapters {
		assert.Len(t, ch.Scenes, expected[i], ch.Title)
		for _, sc := range ch.Scenes {
			assert.NotEmpty(t, sc.Beats, sc.Title)
		}
	}
}

// Any outline with C level-1 headings, S level-2 headings under chapters and
// B non-empty beats under scenes parses to exactly C/S/B.
func TestParse_StructuralRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	markers := []string{"- ", "* ", "+ ", "1. ", "2) ", ""}

	for run := 0; run < 50; run++ {
		var b strings.Builder
		var wantC, wantS, wantB int

		chapters := 1 + rng.Intn(6)
		for c := 0; c < chapters; c++ {
			wantC++
			fmt.Fprintf(&b, "# Chapter %d\n", c)
			if rng.Intn(2) == 0 {
				b.WriteString("\n")
			}
			scenes := rng.Intn(5)
			for s := 0; s < scenes; s++ {
				wantS++
				fmt.Fprintf(&b, "## Scene %d\n", s)
				beats := rng.Intn(6)
				for k := 0; k < beats; k++ {
					wantB++
					fmt.Fprintf(&b, "%sbeat %d\n", markers[rng.Intn(len(markers))], k)
					if rng.Intn(3) == 0 {
						b.WriteString("\n")
					}
				}
			}
		}

		project := parse(t, b.String())
		assert.Equal(t, []int{wantC, wantS, wantB}, counts(project), "run %d:\n%s", run, b.String())
	}
}
