package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewDetailsCmd creates the details command.
func NewDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <task>",
		Short: "Show all entries for one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetails(cmd, args[0])
		},
	}
}

func runDetails(cmd *cobra.Command, taskName string) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	task, entries, err := container.TrackerManager().Details(cmd.Context(), taskName)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(struct {
			Task    any `json:"task"`
			Entries any `json:"entries"`
		}{task, entries})
	}

	var total time.Duration
	for _, e := range entries {
		total += e.Duration()
	}

	formatter.Header(task.PrettyName())
	formatter.Item("project", task.ProjectID)
	formatter.Item("entries", fmt.Sprintf("%d", len(entries)))
	formatter.Item("total", output.FormatDuration(total))
	if len(entries) == 0 {
		return nil
	}
	return formatter.Table(output.EntryTable(entries))
}
