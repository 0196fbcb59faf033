package scrivener

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/core/domain"
)

const scrivx = `<?xml version="1.0" encoding="UTF-8"?>
<ScrivenerProject Identifier="0A1B" Version="2.0" Creator="SCRWIN-3.1.5.1">
  <Binder>
    <BinderItem UUID="DRAFT" Type="DraftFolder">
      <Title>Manuscript</Title>
      <Children>
        <BinderItem UUID="CH1" Type="Folder">
          <Title>Chapter One</Title>
          <Children>
            <BinderItem UUID="SC1" Type="Text"><Title>Arrival</Title></BinderItem>
            <BinderItem UUID="PART" Type="Folder">
              <Title>Flashback</Title>
              <Children>
                <BinderItem UUID="SC2" Type="Text"><Title>Memory</Title></BinderItem>
              </Children>
            </BinderItem>
            <BinderItem UUID="SC3" Type="Text"><Title></Title></BinderItem>
          </Children>
        </BinderItem>
        <BinderItem UUID="LOOSE" Type="Text"><Title>Interlude</Title></BinderItem>
        <BinderItem UUID="IMG" Type="Image"><Title>Map</Title></BinderItem>
      </Children>
    </BinderItem>
    <BinderItem UUID="RESEARCH" Type="ResearchFolder">
      <Title>Research</Title>
      <Children>
        <BinderItem UUID="CHARS" Type="Folder">
          <Title>Characters</Title>
          <Children>
            <BinderItem UUID="MARA" Type="Text"><Title>Mara</Title></BinderItem>
          </Children>
        </BinderItem>
        <BinderItem UUID="HARROW" Type="Text">
          <Title>Harrow</Title>
          <MetaData><IconFileName>Setting Sketch</IconFileName></MetaData>
        </BinderItem>
        <BinderItem UUID="SHIP" Type="Text">
          <Title>The Heron</Title>
          <MetaData><LabelID>3</LabelID></MetaData>
        </BinderItem>
        <BinderItem UUID="MISC" Type="Text"><Title>Reading list</Title></BinderItem>
      </Children>
    </BinderItem>
  </Binder>
  <LabelSettings><Labels><Label ID="3">Vessel</Label></Labels></LabelSettings>
</ScrivenerProject>`

// writePackage creates a .scriv package with the given index and data files.
func writePackage(t *testing.T, index string, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Long Road.scriv")
	require.NoError(t, os.MkdirAll(root, 0o755))
	if index != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "Long Road.scrivx"), []byte(index), 0o600))
	}
	for rel, content := range files {
		path := filepath.Join(root, "Files", "Data", rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func fixture(t *testing.T) string {
	return writePackage(t, scrivx, map[string]string{
		"SC1/synopsis.txt":   "Mara reaches the gate.",
		"SC1/content.rtf":    `{\rtf1\ansi{\fonttbl\f0\fswiss Helvetica;}\f0\fs24 Mara reaches the gate.}`,
		"SC2/synopsis.txt":   "She remembers the flood.",
		"SC2/content.rtf":    `{\rtf1\ansi The water rose.\par It took the mill.}`,
		"SC3/content.txt":    "A bell rings",
		"LOOSE/synopsis.txt": "Quiet night.",
		"MARA/synopsis.txt":  "The courier",
		"MARA/content.rtf":   `{\rtf1\ansi Left-handed. Caf\'e9 owner.}`,
		"HARROW/content.txt": "A river village.",
	})
}

func sid(s string) *string { return &s }

func parse(t *testing.T, path string, opts ...Option) *domain.ParsedProject {
	t.Helper()
	project, err := New(opts...).Parse(context.Background(), domain.ImportInput{Path: path})
	require.NoError(t, err)
	require.NotNil(t, project)
	return project
}

func TestParser_Metadata(t *testing.T) {
	p := New()
	assert.Equal(t, domain.FormatScrivener, p.Format())
	assert.True(t, p.IsDirectory())
	assert.True(t, p.Detect("/w/Novel.scriv"))
	assert.True(t, p.Detect("/w/Novel.scriv/"))
	assert.True(t, p.Detect("/w/Novel.scriv/Novel.scrivx"))
	assert.False(t, p.Detect("/w/vault"))
}

func TestParse_Draft(t *testing.T) {
	project := parse(t, fixture(t))

	assert.Equal(t, "Long Road", project.Name)
	require.Len(t, project.Chapters, 2, "images are skipped")

	ch1 := project.Chapters[0]
	assert.Equal(t, "Chapter One", ch1.Title)
	assert.Equal(t, sid("CH1"), ch1.SourceID)
	require.Len(t, ch1.Scenes, 3, "nested folder is flattened")
	assert.Equal(t, []string{"Arrival", "Memory", "Scene 3"},
		[]string{ch1.Scenes[0].Title, ch1.Scenes[1].Title, ch1.Scenes[2].Title})

	loose := project.Chapters[1]
	assert.Equal(t, "Interlude", loose.Title)
	assert.Equal(t, sid("LOOSE#chapter"), loose.SourceID)
	require.Len(t, loose.Scenes, 1)
	assert.Equal(t, sid("LOOSE"), loose.Scenes[0].SourceID)
	assert.Equal(t, "Quiet night.", loose.Scenes[0].Synopsis)
}

func TestParse_SynopsisBeats(t *testing.T) {
	scenes := parse(t, fixture(t)).Chapters[0].Scenes

	// Single-sentence text identical to the synopsis collapses to one beat.
	arrival := scenes[0]
	assert.Equal(t, []domain.ParsedBeat{
		{Content: "Mara reaches the gate.", SourceID: sid("SC1#summary")},
	}, arrival.Beats)

	// Multi-sentence manuscript text is prose and is not imported.
	memory := scenes[1]
	assert.Equal(t, []domain.ParsedBeat{
		{Content: "She remembers the flood.", SourceID: sid("SC2#summary")},
	}, memory.Beats)

	// No synopsis, single sentence of text: the sentence is the beat.
	untitled := scenes[2]
	assert.Empty(t, untitled.Synopsis)
	assert.Equal(t, []domain.ParsedBeat{
		{Content: "A bell rings", SourceID: sid("SC3#text")},
	}, untitled.Beats)
}

func TestParse_DistinctSentenceAddsBeat(t *testing.T) {
	root := writePackage(t, scrivx, map[string]string{
		"SC1/synopsis.txt": "Mara reaches the gate.",
		"SC1/content.txt":  "The guard refuses her.",
	})

	beats := parse(t, root).Chapters[0].Scenes[0].Beats
	require.Len(t, beats, 2)
	assert.Equal(t, "The guard refuses her.", beats[1].Content)
	assert.Equal(t, sid("SC1#text"), beats[1].SourceID)
}

func TestParse_Research(t *testing.T) {
	project := parse(t, fixture(t))

	require.Len(t, project.References, 2)
	mara := project.References[0]
	assert.Equal(t, domain.ReferenceCharacter, mara.Kind)
	assert.Equal(t, "Mara", mara.Name)
	assert.Equal(t, sid("MARA"), mara.SourceID)
	assert.Equal(t, "The courier", mara.Attributes["synopsis"])
	assert.Equal(t, "Left-handed. Café owner.", mara.Attributes["notes"])

	harrow := project.References[1]
	assert.Equal(t, domain.ReferenceLocation, harrow.Kind)
	assert.Equal(t, "A river village.", harrow.Attributes["notes"])
}

func TestParse_CustomTemplates(t *testing.T) {
	project := parse(t, fixture(t), WithTemplates(map[string]domain.ReferenceKind{"Vessel": domain.ReferenceItem}))

	require.Len(t, project.References, 3)
	assert.Equal(t, "The Heron", project.References[2].Name)
	assert.Equal(t, domain.ReferenceItem, project.References[2].Kind)
}

func TestParse_IndexPath(t *testing.T) {
	root := fixture(t)
	project := parse(t, filepath.Join(root, "Long Road.scrivx"))
	assert.Len(t, project.Chapters, 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		index string
		kind  error
	}{
		{"missing index", "", domain.ErrInvalidStructure},
		{"broken xml", `<ScrivenerProject Version="2.0"><Binder>`, domain.ErrInvalidStructure},
		{"wrong root", `<Project Version="2.0"></Project>`, domain.ErrInvalidStructure},
		{"no draft", `<ScrivenerProject Version="2.0"><Binder></Binder></ScrivenerProject>`, domain.ErrInvalidStructure},
		{"scrivener 2", `<ScrivenerProject Version="1.0"><Binder></Binder></ScrivenerProject>`, domain.ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := New().Parse(context.Background(), domain.ImportInput{Path: writePackage(t, tt.index, nil)})
			assert.Nil(t, project)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestParse_NotADirectory(t *testing.T) {
	_, err := New().Parse(context.Background(), domain.ImportInput{
		Path: filepath.Join(t.TempDir(), "missing.scriv"),
	})
	assert.ErrorIs(t, err, domain.ErrUnreadable)
}

func TestParseTemplates(t *testing.T) {
	got, err := ParseTemplates("Creature=character, Ship = item,,")
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ReferenceKind{
		"Creature": domain.ReferenceCharacter,
		"Ship":     domain.ReferenceItem,
	}, got)

	_, err = ParseTemplates("Creature")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = ParseTemplates("Creature=monster")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRTFToText(t *testing.T) {
	tests := []struct {
		name     string
		rtf      string
		expected string
	}{
		{"plain", `{\rtf1\ansi Hello}`, "Hello"},
		{"paragraphs", `{\rtf1 One\par Two\par}`, "One\nTwo"},
		{"font table skipped", `{\rtf1{\fonttbl\f0 Helvetica;}{\colortbl;\red0;}\f0 Body}`, "Body"},
		{"ignorable destination", `{\rtf1{\*\expandedcolortbl;;}Text}`, "Text"},
		{"escapes", `{\rtf1 a\{b\}c\\d}`, `a{b}c\d`},
		{"hex cp1252", `{\rtf1 na\'efve}`, "naïve"},
		{"unicode", `{\rtf1 \u8212?dash}`, "—dash"},
		{"negative unicode", `{\rtf1 \u-3913?}`, "\uf0b7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rtfToText(tt.rtf))
		})
	}
}
