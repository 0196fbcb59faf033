package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/adapters/driving/report"
	"github.com/custodia-labs/quill/internal/core/domain"
)

var previewCmd = &cobra.Command{
	Use:   "preview <project>",
	Short: "Show what a reimport would change",
	Long: `Parse the project's source again and compare it with the stored outline.
Nothing is written.

Each addition and change has a key in brackets. Pass keys to
'quill reimport --only' to apply a subset.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var reimportCmd = &cobra.Command{
	Use:   "reimport <project>",
	Short: "Preview and apply changes from the project's source",
	Long: `Parse the project's source again, show the preview, and apply it after
confirmation. Prose is never changed. Locked nodes are left alone.

Examples:
  quill reimport novel
  quill reimport novel --yes
  quill reimport novel --only c3,chapter:4b1e...:title`,
	Args: cobra.ExactArgs(1),
	RunE: runReimport,
}

func init() {
	previewCmd.Flags().String("path", "", "compare against this source instead of the recorded one")
	previewCmd.Flags().Bool("json", false, "print the preview as JSON")

	reimportCmd.Flags().String("path", "", "import from this source instead of the recorded one")
	reimportCmd.Flags().BoolP("yes", "y", false, "apply without asking")
	reimportCmd.Flags().String("only", "", "comma-separated keys to apply (default: all)")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(reimportCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errImportServiceMissing
	}
	path, _ := cmd.Flags().GetString("path")
	asJSON, _ := cmd.Flags().GetBool("json")

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	preview, err := importService.ParseAndPreview(cmd.Context(), project.ID, path)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report.NewPreview(preview))
	}

	renderPreview(cmd.OutOrStdout(), project.Name, preview)
	return nil
}

func runReimport(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errImportServiceMissing
	}
	path, _ := cmd.Flags().GetString("path")
	yes, _ := cmd.Flags().GetBool("yes")
	only, _ := cmd.Flags().GetString("only")

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	preview, err := importService.ParseAndPreview(cmd.Context(), project.ID, path)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	renderPreview(cmd.OutOrStdout(), project.Name, preview)
	if preview.IsEmpty() {
		return nil
	}

	approved, err := approvedKeys(preview, only)
	if err != nil {
		return err
	}

	if !yes {
		count := len(preview.Keys())
		if approved != nil {
			count = len(approved)
		}
		ok, err := confirm(cmd, fmt.Sprintf("Apply %d item(s)?", count))
		if errors.Is(err, errNotInteractive) {
			cmd.Println("Not applied. Run again with --yes to apply.")
			return nil
		}
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Nothing applied.")
			return nil
		}
	}

	summary, err := importService.ApplyPreview(cmd.Context(), project.ID, preview, approved)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	renderSummary(cmd.OutOrStdout(), summary)
	return nil
}

// approvedKeys parses --only. An empty value approves everything (nil).
func approvedKeys(preview *domain.SyncPreview, only string) ([]string, error) {
	if strings.TrimSpace(only) == "" {
		return nil, nil
	}

	known := preview.Keys()
	keys := []string{}
	for _, key := range strings.Split(only, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !slices.Contains(known, key) {
			return nil, fmt.Errorf("key %q is not in the preview: %w", key, domain.ErrInvalidInput)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
