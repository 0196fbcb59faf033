package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill/internal/core/domain"
)

func sampleTree() *domain.ProjectTree {
	prose := "The ferry groaned."
	return &domain.ProjectTree{
		Project: domain.Project{ID: "p1", Name: "Harbour Lights"},
		Chapters: []domain.Chapter{
			{
				ID: "ch1", Title: "Act One", Position: 0,
				Scenes: []domain.Scene{{
					ID: "sc1", Title: "Arrival", Synopsis: "Mara reaches the island.", Locked: true,
					Beats: []domain.Beat{
						{ID: "b1", Content: "Ferry docks", Prose: &prose},
						{ID: "b2", Content: "Old draft", Position: 1, Archived: true},
					},
				}},
			},
			{ID: "ch2", Title: "Cut material", Position: 1, Archived: true},
		},
		References: []domain.Reference{
			{ID: "r1", Kind: domain.ReferenceCharacter, Name: "Mara"},
		},
	}
}

func TestProjectsCmd_Lists(t *testing.T) {
	withServices(t, Services{Project: &mockProjectService{projects: sampleProjects()}})

	out, err := runCommand(t, "", "projects")

	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Harbour Lights")
	assert.Contains(t, out, "Salt Road")
	assert.Contains(t, out, "2 project(s)")
}

func TestProjectsCmd_Empty(t *testing.T) {
	withServices(t, Services{Project: &mockProjectService{}})

	out, err := runCommand(t, "", "projects")

	require.NoError(t, err)
	assert.Contains(t, out, "No projects yet")
}

func TestTreeCmd_HidesArchivedByDefault(t *testing.T) {
	withServices(t, Services{Project: &mockProjectService{projects: sampleProjects(), tree: sampleTree()}})

	out, err := runCommand(t, "", "tree", "harbour lights")

	require.NoError(t, err)
	assert.Contains(t, out, "1. Act One")
	assert.Contains(t, out, "1. Arrival")
	assert.Contains(t, out, "(locked)")
	assert.Contains(t, out, "Ferry docks")
	assert.Contains(t, out, "(prose)")
	assert.Contains(t, out, "Mara")
	assert.NotContains(t, out, "Old draft")
	assert.NotContains(t, out, "Cut material")
}

func TestTreeCmd_AllShowsArchived(t *testing.T) {
	withServices(t, Services{Project: &mockProjectService{projects: sampleProjects(), tree: sampleTree()}})

	out, err := runCommand(t, "", "tree", "p1", "--all")

	require.NoError(t, err)
	assert.Contains(t, out, "Old draft")
	assert.Contains(t, out, "Cut material")
	assert.Contains(t, out, "(archived)")
}

func TestTreeCmd_UnknownProject(t *testing.T) {
	withServices(t, Services{Project: &mockProjectService{projects: sampleProjects()}})

	_, err := runCommand(t, "", "tree", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveProject(t *testing.T) {
	projects := append(sampleProjects(), domain.Project{ID: "p3", Name: "salt road"})
	withServices(t, Services{Project: &mockProjectService{projects: projects}})
	ctx := context.Background()

	p, err := resolveProject(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Salt Road", p.Name)

	p, err = resolveProject(ctx, "HARBOUR LIGHTS")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = resolveProject(ctx, "Salt Road")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use the project ID")
}

func TestDeleteCmd(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		stdin       string
		wantDeleted string
		wantOut     string
	}{
		{"yes flag", []string{"delete", "p1", "--yes"}, "", "p1", "Deleted project Harbour Lights"},
		{"confirmed", []string{"delete", "p1"}, "y\n", "p1", "Deleted project"},
		{"declined", []string{"delete", "p1"}, "n\n", "", "Nothing deleted."},
		{"no answer", []string{"delete", "p1"}, "", "", "Nothing deleted."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockProjectService{projects: sampleProjects()}
			withServices(t, Services{Project: svc})

			out, err := runCommand(t, tt.stdin, tt.args...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, svc.deleted)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}
