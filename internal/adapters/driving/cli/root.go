// Package cli provides the quill command line.
//
// Commands are registered on a package-level root command in init functions.
// Services are injected once at startup through Configure; a command whose
// service was not configured fails with a plain error instead of panicking.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/core/ports/driving"
	"github.com/custodia-labs/quill/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	importService   driving.ImportService
	projectService  driving.ProjectService
	settingsService driving.SettingsService
	sourceMonitor   driving.SourceMonitor
)

// Services bundles everything the commands call into.
type Services struct {
	Import   driving.ImportService
	Project  driving.ProjectService
	Settings driving.SettingsService
	Monitor  driving.SourceMonitor
}

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Import story outlines and keep them in sync with their source",
	Long: `quill imports outlines from Markdown, Plottr, Scrivener, yWriter and
Obsidian-style vaults into a local project database.

When the source changes, reimport shows what would be added or changed and
applies only what you approve. Prose written against a beat is never touched.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		logger.SetVerbose(verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print step-by-step logs to stderr")
}

// Configure injects the services used by the commands.
func Configure(s Services) {
	importService = s.Import
	projectService = s.Project
	settingsService = s.Settings
	sourceMonitor = s.Monitor
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
