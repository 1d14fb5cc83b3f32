package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task>",
		Short: "Delete a task and its entries",
		Long: `Delete a task and every entry logged against it. A task being
tracked must be stopped first. Entries and tasks already known to the
billing service are retracted on the next sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}
}

func runDelete(cmd *cobra.Command, taskName string) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	if err := container.TrackerManager().DeleteTask(cmd.Context(), taskName); err != nil {
		return err
	}

	return formatter.Success("Deleted %s", taskName)
}
