package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewPopCmd creates the pop command.
func NewPopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pop <task>",
		Short: "Remove the most recent entry",
		Long: `Remove the most recent entry from the log. The task name must match
the entry being removed; this guards against popping the wrong entry
after an unnoticed implicit switch. Popping an entry that was already
synced queues its remote retraction for the next sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPop(cmd, args[0])
		},
	}
}

func runPop(cmd *cobra.Command, taskName string) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	popped, err := container.TrackerManager().Pop(cmd.Context(), taskName)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(popped)
	}

	formatter.Success("Popped %s", output.EntryLine(popped))
	if popped.IsSynced() {
		formatter.Info("The entry was already synced; it will be retracted on the next sync.")
	}
	return nil
}
