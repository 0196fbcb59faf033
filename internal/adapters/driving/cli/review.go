package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/adapters/driving/tui"
)

var reviewCmd = &cobra.Command{
	Use:   "review <project>",
	Short: "Pick reimport items to apply in an interactive screen",
	Long: `Parse the project's source again and open the preview as a checklist.

Controls:
  ↑/k, ↓/j  Navigate items
  space     Approve or reject the item
  a / n     Approve all / none
  enter     Apply the approved items
  q, esc    Quit without applying`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().String("path", "", "compare against this source instead of the recorded one")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errImportServiceMissing
	}
	path, _ := cmd.Flags().GetString("path")

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	preview, err := importService.ParseAndPreview(cmd.Context(), project.ID, path)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}
	if preview.IsEmpty() {
		cmd.Println("No changes detected.")
		return nil
	}

	app, err := tui.NewApp(&tui.Ports{Import: importService}, project.Name, preview)
	if err != nil {
		return err
	}
	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("review screen: %w", err)
	}

	if err := app.Err(); err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}
	if summary := app.Summary(); summary != nil {
		renderSummary(cmd.OutOrStdout(), summary)
		return nil
	}
	cmd.Println("Nothing applied.")
	return nil
}
