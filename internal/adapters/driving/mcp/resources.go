package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quill/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for quill resources.
	uriScheme = "quill://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "projects",
		Name:        "projects",
		Description: "List of all projects",
		MIMEType:    "application/json",
	}, s.handleProjectsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "projects/{projectId}/outline",
		Name:        "project-outline",
		Description: "Chapters, scenes and beats of a project, with prose",
		MIMEType:    "text/markdown",
	}, s.handleOutlineResource)
}

// handleProjectsResource returns a list of all projects.
func (s *Server) handleProjectsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	projects, err := s.ports.Project.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	type projectInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URI  string `json:"uri"`
	}

	infos := make([]projectInfo, len(projects))
	for i, p := range projects {
		infos[i] = projectInfo{
			ID:   p.ID,
			Name: p.Name,
			URI:  uriScheme + "projects/" + p.ID + "/outline",
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling projects: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleOutlineResource renders a project outline as markdown.
func (s *Server) handleOutlineResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract projectId from URI: quill://projects/{projectId}/outline
	projectID := extractProjectID(req.Params.URI)
	if projectID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	tree, err := s.ports.Project.Tree(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading outline: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     outlineMarkdown(tree),
		}},
	}, nil
}

// outlineMarkdown writes the outline in the same shape quill imports,
// with prose as paragraphs under each beat. Archived nodes are left out.
func outlineMarkdown(tree *domain.ProjectTree) string {
	var b strings.Builder
	for _, ch := range tree.Chapters {
		if ch.Archived {
			continue
		}
		fmt.Fprintf(&b, "# %s\n\n", ch.Title)
		for _, sc := range ch.Scenes {
			if sc.Archived {
				continue
			}
			fmt.Fprintf(&b, "## %s\n\n", sc.Title)
			if sc.Synopsis != "" {
				fmt.Fprintf(&b, "%s\n\n", sc.Synopsis)
			}
			for _, beat := range sc.Beats {
				if beat.Archived {
					continue
				}
				fmt.Fprintf(&b, "- %s\n", beat.Content)
				if beat.Prose != nil && *beat.Prose != "" {
					fmt.Fprintf(&b, "\n%s\n\n", *beat.Prose)
				}
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// extractProjectID extracts the project ID from a URI like quill://projects/{projectId}/outline.
func extractProjectID(uri string) string {
	const prefix = uriScheme + "projects/"
	const suffix = "/outline"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
