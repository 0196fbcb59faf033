package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill/internal/core/domain"
)

var proseCmd = &cobra.Command{
	Use:   "prose <project> <beat-id> [file|-]",
	Short: "Set or clear the prose written for a beat",
	Long: `Store prose for a beat from a file, or from stdin when the file is "-".
Prose belongs to you: reimport never changes it.

Examples:
  quill prose novel 3f2a... draft.md
  pbpaste | quill prose novel 3f2a... -
  quill prose novel 3f2a... --clear`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runProse,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <project> <kind> <id>",
	Short: "Hide a chapter, scene or beat",
	Long: `Archive a chapter, scene or beat. Archived nodes stay in the database and
are still matched on reimport, so they are never re-added.`,
	Args: cobra.ExactArgs(3),
	RunE: runArchive,
}

var lockCmd = &cobra.Command{
	Use:   "lock <project> <kind> <id>",
	Short: "Protect a node from reimport changes",
	Args:  cobra.ExactArgs(3),
	RunE:  runLock(true),
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <project> <kind> <id>",
	Short: "Allow reimport changes to a node again",
	Args:  cobra.ExactArgs(3),
	RunE:  runLock(false),
}

var moveCmd = &cobra.Command{
	Use:   "move <project> <kind> <id> <position>",
	Short: "Move a node among its siblings",
	Long:  `Move a chapter, scene or beat to a 1-based position among its siblings.`,
	Args:  cobra.ExactArgs(4),
	RunE:  runMove,
}

func init() {
	proseCmd.Flags().Bool("clear", false, "remove the beat's prose")

	rootCmd.AddCommand(proseCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(moveCmd)
}

func runProse(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errProjectServiceMissing
	}
	clearProse, _ := cmd.Flags().GetBool("clear")

	switch {
	case clearProse && len(args) == 3:
		return fmt.Errorf("--clear takes no file: %w", domain.ErrInvalidInput)
	case !clearProse && len(args) == 2:
		return fmt.Errorf("a file or - is required: %w", domain.ErrInvalidInput)
	}

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	beatID := args[1]

	var prose *string
	if !clearProse {
		text, err := readProse(cmd, args[2])
		if err != nil {
			return err
		}
		prose = &text
	}

	if err := projectService.SetProse(cmd.Context(), project.ID, beatID, prose); err != nil {
		return fmt.Errorf("failed to set prose: %w", err)
	}

	if prose == nil {
		cmd.Printf("Cleared prose for beat %s\n", beatID)
	} else {
		cmd.Printf("Saved %d bytes of prose for beat %s\n", len(*prose), beatID)
	}
	return nil
}

func readProse(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading prose file: %w", err)
	}
	return string(data), nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errProjectServiceMissing
	}

	project, kind, err := resolveNode(cmd, args)
	if err != nil {
		return err
	}

	if err := projectService.Archive(cmd.Context(), project.ID, kind, args[2]); err != nil {
		return fmt.Errorf("failed to archive %s: %w", kind, err)
	}
	cmd.Printf("Archived %s %s\n", kind, args[2])
	return nil
}

func runLock(locked bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if projectService == nil {
			return errProjectServiceMissing
		}

		project, kind, err := resolveNode(cmd, args)
		if err != nil {
			return err
		}

		if err := projectService.SetLocked(cmd.Context(), project.ID, kind, args[2], locked); err != nil {
			return fmt.Errorf("failed to update lock: %w", err)
		}
		if locked {
			cmd.Printf("Locked %s %s\n", kind, args[2])
		} else {
			cmd.Printf("Unlocked %s %s\n", kind, args[2])
		}
		return nil
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errProjectServiceMissing
	}

	position, err := strconv.Atoi(args[3])
	if err != nil || position < 1 {
		return fmt.Errorf("position must be a number from 1: %w", domain.ErrInvalidInput)
	}

	project, kind, err := resolveNode(cmd, args)
	if err != nil {
		return err
	}

	if err := projectService.Reorder(cmd.Context(), project.ID, kind, args[2], position-1); err != nil {
		return fmt.Errorf("failed to move %s: %w", kind, err)
	}
	cmd.Printf("Moved %s %s to position %d\n", kind, args[2], position)
	return nil
}

// resolveNode reads the <project> <kind> arguments shared by the outline commands.
func resolveNode(cmd *cobra.Command, args []string) (*domain.Project, domain.ItemKind, error) {
	kind, err := domain.ParseItemKind(args[1])
	if err != nil || kind == domain.KindReference {
		return nil, "", fmt.Errorf("kind must be chapter, scene or beat, got %q: %w", args[1], domain.ErrUnsupportedType)
	}

	project, err := resolveProject(cmd.Context(), args[0])
	if err != nil {
		return nil, "", err
	}
	return project, kind, nil
}
