package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [time] [notes...]",
		Short: "Stop tracking the active task",
		Long: `Stop the active task. The optional time is '2006-01-02 15:04' or a
bare '15:04' meaning today; omitted means now. Remaining arguments are
appended to the entry's notes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, args)
		},
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	at, notes, err := splitTimeAndNotes(args)
	if err != nil {
		return err
	}

	result, err := container.TrackerManager().Stop(cmd.Context(), at, notes)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(result)
	}

	formatter.Success("Stopped %s", output.EntryLine(result.Entry))
	if result.Warn {
		formatter.Warning("Looks like you worked %s on this entry (usual is under %s).",
			output.FormatDuration(result.Entry.Duration()),
			output.FormatDuration(result.Threshold))
		formatter.Warning("If that is a mistake, fix it with 'ttracker pop %s'.", result.Entry.TaskName)
	}
	return nil
}
