package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quill/internal/adapters/driving/report"
	"github.com/custodia-labs/quill/internal/core/domain"
)

// ListProjectsInput is the input schema for the list_projects tool.
type ListProjectsInput struct{}

// ListProjectsOutput is the output schema for the list_projects tool.
type ListProjectsOutput struct {
	Projects []ProjectOutput `json:"projects"`
	Count    int             `json:"count"`
}

// ProjectOutput represents a single project.
type ProjectOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

// PreviewInput is the input schema for the preview_reimport tool.
type PreviewInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project to compare against its source"`
	Path      string `json:"path,omitempty" jsonschema:"source path; defaults to the recorded import source"`
}

// ApplyInput is the input schema for the apply_reimport tool.
type ApplyInput struct {
	ProjectID string   `json:"project_id" jsonschema:"the project to update"`
	Keys      []string `json:"keys,omitempty" jsonschema:"approved item keys from preview_reimport; omit to approve all"`
	Checksum  string   `json:"checksum,omitempty" jsonschema:"checksum from preview_reimport; apply fails if the source changed since"`
	Path      string   `json:"path,omitempty" jsonschema:"source path; defaults to the recorded import source"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List every quill project",
	}, s.handleListProjects)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "preview_reimport",
		Description: "Compare a project with its outline source and list proposed additions and changes. " +
			"Nothing is written. Prose is never part of a change.",
	}, s.handlePreview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "apply_reimport",
		Description: "Apply approved items from preview_reimport. Nothing is deleted " +
			"and the writer's prose is left untouched.",
	}, s.handleApply)
}

// handleListProjects handles the list_projects tool invocation.
func (s *Server) handleListProjects(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListProjectsInput,
) (*mcp.CallToolResult, ListProjectsOutput, error) {
	projects, err := s.ports.Project.List(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, err
	}

	output := ListProjectsOutput{
		Projects: make([]ProjectOutput, len(projects)),
		Count:    len(projects),
	}
	for i, p := range projects {
		output.Projects[i] = ProjectOutput{
			ID:        p.ID,
			Name:      p.Name,
			UpdatedAt: p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return nil, output, nil
}

// handlePreview handles the preview_reimport tool invocation.
func (s *Server) handlePreview(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PreviewInput,
) (*mcp.CallToolResult, report.PreviewOutput, error) {
	preview, err := s.ports.Import.ParseAndPreview(ctx, input.ProjectID, input.Path)
	if err != nil {
		return nil, report.PreviewOutput{}, err
	}
	return nil, report.NewPreview(preview), nil
}

// handleApply handles the apply_reimport tool invocation. The preview is
// rebuilt from the source; keys are structural, so a checksum guards
// against the source moving underneath the caller.
func (s *Server) handleApply(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ApplyInput,
) (*mcp.CallToolResult, report.SummaryOutput, error) {
	preview, err := s.ports.Import.ParseAndPreview(ctx, input.ProjectID, input.Path)
	if err != nil {
		return nil, report.SummaryOutput{}, err
	}
	if input.Checksum != "" && input.Checksum != preview.Checksum {
		return nil, report.SummaryOutput{}, ErrChecksumMismatch
	}

	known := make(map[string]bool, len(preview.Keys()))
	for _, k := range preview.Keys() {
		known[k] = true
	}
	for _, k := range input.Keys {
		if !known[k] {
			return nil, report.SummaryOutput{}, fmt.Errorf("unknown key %q: %w", k, domain.ErrStalePreview)
		}
	}

	summary, err := s.ports.Import.ApplyPreview(ctx, input.ProjectID, preview, input.Keys)
	if err != nil {
		return nil, report.SummaryOutput{}, err
	}
	return nil, report.NewSummary(summary), nil
}
