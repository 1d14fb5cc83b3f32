package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <task> <project> [time] [notes...]",
		Short: "Start tracking a task",
		Long: `Start tracking a task. If another task is being tracked, it is
stopped at the same instant. The project may be an id, a nickname, or
"0" to reuse the task's previous project. The optional time is
'2006-01-02 15:04' or a bare '15:04' meaning today; omitted means now.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, args)
		},
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	taskName, projectRef := args[0], args[1]
	at, notes, err := splitTimeAndNotes(args[2:])
	if err != nil {
		return err
	}

	before, err := container.TrackerManager().Status(cmd.Context())
	if err != nil {
		return err
	}

	started, err := container.TrackerManager().Start(cmd.Context(), taskName, projectRef, at, notes)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(started)
	}

	if before != nil && before.ID == started.ID {
		formatter.Info("%s is already being tracked", started.TaskName)
		return formatter.Println("%s", output.EntryLine(started))
	}
	if before != nil {
		formatter.Println("Stopped %s at %s", before.TaskName, started.StartTime.Format("15:04"))
	}
	return formatter.Success("Started %s", output.EntryLine(started))
}
