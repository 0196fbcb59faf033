package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/quill/internal/core/domain"
)

var errSettingsServiceMissing = errors.New("settings service not configured")

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings",
	Long: `Settings live in ~/.quill/config.toml.

Keys:
  storage.data_dir              directory holding quill.db
  log.file                      rotated log file
  log.max_size_mb               log size before rotation
  import.default_format         format used when detection finds nothing
  watch.debounce_ms             quiet period before a change is reported
  scrivener.research_templates  extra Scrivener research templates as Name=kind`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting and its value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	s := styles.NewStylesFor(cmd.OutOrStdout(), nil)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, def := range domain.SettingDefs() {
		value, set, err := settingsService.Value(def.Key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", def.Key, err)
		}
		if !set {
			value = s.Muted.Render("(default)")
		}
		fmt.Fprintf(tw, "%s\t%s\n", def.Key, value)
	}
	return tw.Flush()
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	value, set, err := settingsService.Value(args[0])
	if err != nil {
		return err
	}
	if !set {
		def, _ := domain.LookupSetting(args[0])
		cmd.Printf("%s is not set (%s)\n", args[0], def.Description)
		return nil
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}
