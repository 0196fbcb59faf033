package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quill/internal/core/domain"
)

var errProjectServiceMissing = errors.New("project service not configured")

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"ls"},
	Short:   "List imported projects",
	Args:    cobra.NoArgs,
	RunE:    runProjects,
}

var treeCmd = &cobra.Command{
	Use:   "tree <project>",
	Short: "Show a project's outline",
	Long: `Show a project's chapters, scenes and beats in order, followed by its
references. The project may be given by ID or by exact name.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project and everything in it",
	Long: `Delete a project, its outline, its prose and its recorded import source.
This cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	treeCmd.Flags().BoolP("all", "a", false, "include archived nodes")
	deleteCmd.Flags().BoolP("yes", "y", false, "delete without asking")

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runProjects(cmd *cobra.Command, _ []string) error {
	if projectService == nil {
		return errProjectServiceMissing
	}

	projects, err := projectService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		cmd.Println("No projects yet. Run 'quill import <path>' to create one.")
		return nil
	}

	s := styles.NewStylesFor(cmd.OutOrStdout(), nil)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	cmd.Println(s.Muted.Render(fmt.Sprintf("%d project(s)", len(projects))))
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errProjectServiceMissing
	}
	all, _ := cmd.Flags().GetBool("all")

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	tree, err := projectService.Tree(cmd.Context(), project.ID)
	if err != nil {
		return fmt.Errorf("failed to load outline: %w", err)
	}

	renderTree(cmd.OutOrStdout(), tree, all)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errProjectServiceMissing
	}
	yes, _ := cmd.Flags().GetBool("yes")

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if !yes {
		ok, err := confirm(cmd, fmt.Sprintf("Delete %q and all its prose?", project.Name))
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Nothing deleted.")
			return nil
		}
	}

	if err := projectService.Delete(cmd.Context(), project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	cmd.Printf("Deleted project %s\n", project.Name)
	return nil
}

// resolveProject finds a project by ID, then by case-insensitive name.
func resolveProject(ctx context.Context, ref string) (*domain.Project, error) {
	if projectService == nil {
		return nil, errProjectServiceMissing
	}

	projects, err := projectService.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	for i := range projects {
		if projects[i].ID == ref {
			return &projects[i], nil
		}
	}

	var matches []*domain.Project
	for i := range projects {
		if strings.EqualFold(projects[i].Name, ref) {
			matches = append(matches, &projects[i])
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("project %q: %w", ref, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%d projects are named %q; use the project ID", len(matches), ref)
	}
}
