package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report when imported sources change on disk",
	Long: `Watch every recorded import source and report when one changes.
Nothing is applied; run 'quill reimport' to review and apply.

Use --preview to print the reimport preview for each change.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("preview", false, "print a reimport preview for each change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if sourceMonitor == nil {
		return errors.New("source monitor not configured")
	}
	withPreview, _ := cmd.Flags().GetBool("preview")
	if withPreview && importService == nil {
		return errImportServiceMissing
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := make(chan domain.SourceChanged)
	done := make(chan error, 1)
	go func() {
		done <- sourceMonitor.Run(ctx, events)
	}()

	cmd.Println("Watching import sources. Press Ctrl+C to stop.")

	for {
		select {
		case ev := <-events:
			name := ev.ProjectID
			if p, err := resolveProject(ctx, ev.ProjectID); err == nil {
				name = p.Name
			}
			cmd.Printf("Source changed for %s: %s\n", name, ev.Path)

			if withPreview {
				preview, err := importService.ParseAndPreview(ctx, ev.ProjectID, "")
				if err != nil {
					cmd.PrintErrf("preview failed: %v\n", err)
					continue
				}
				renderPreview(cmd.OutOrStdout(), name, preview)
			}

		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watch failed: %w", err)
			}
			return nil
		}
	}
}
