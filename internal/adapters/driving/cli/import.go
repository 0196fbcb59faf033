package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/core/ports/driving"
	"github.com/custodia-labs/quill/internal/logger"
)

var errImportServiceMissing = errors.New("import service not configured")

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import an outline as a new project",
	Long: `Parse an outline source and store it as a new project.

The format is detected from the path: .md files, .pltr files, .scriv
packages, .yw7 files and folders of notes. Use --format to force one.

Examples:
  quill import novel.pltr
  quill import "My Book.scriv" --name "My Book"
  quill import ./vault --format vault`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var statusCmd = &cobra.Command{
	Use:   "status <project>",
	Short: "Show whether an import is running for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	importCmd.Flags().StringP("name", "n", "", "project name (default: from the source)")
	importCmd.Flags().StringP("format", "f", "", "source format: "+formatList())

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errImportServiceMissing
	}

	name, _ := cmd.Flags().GetString("name")
	formatFlag, _ := cmd.Flags().GetString("format")

	req := driving.ImportRequest{Path: args[0], Name: name}
	if formatFlag != "" {
		format, err := domain.ParseFormat(formatFlag)
		if err != nil {
			return fmt.Errorf("unknown format %q (supported: %s)", formatFlag, formatList())
		}
		req.Format = format
	}

	result, err := importService.Import(cmd.Context(), req)
	if errors.Is(err, domain.ErrUnsupportedType) && req.Format == "" {
		if fallback := defaultFormat(); fallback != "" {
			logger.Info("Detection failed; retrying as %s", fallback)
			req.Format = fallback
			result, err = importService.Import(cmd.Context(), req)
		}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %q as project %s (%s)\n", result.Project.Name, result.Project.ID, result.Format)
	renderSummary(cmd.OutOrStdout(), &result.Summary)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errImportServiceMissing
	}

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	status, err := importService.Status(cmd.Context(), project.ID)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if status.Running {
		cmd.Printf("%s: %s in progress\n", project.Name, status.Phase)
	} else {
		cmd.Printf("%s: idle\n", project.Name)
	}
	return nil
}

// defaultFormat returns the configured fallback format, if any.
func defaultFormat() domain.Format {
	if settingsService == nil {
		return ""
	}
	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("Cannot read settings: %v", err)
		return ""
	}
	return settings.DefaultFormat
}

func formatList() string {
	names := make([]string, 0, len(domain.AllFormats()))
	for _, f := range domain.AllFormats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
