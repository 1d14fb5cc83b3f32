package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewPushCmd creates the push command.
func NewPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <task> <project> <start> <end> [notes...]",
		Short: "Append a closed entry with explicit times",
		Long: `Append a closed entry with explicit start and end times. Usually used
after pop to re-add a corrected entry. Times are '2006-01-02 15:04' or a
bare '15:04' meaning today.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd, args)
		},
	}
}

func runPush(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	taskName, projectRef := args[0], args[1]
	start, err := parseTimestamp(args[2])
	if err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	end, err := parseTimestamp(args[3])
	if err != nil {
		return fmt.Errorf("invalid end: %w", err)
	}
	notes := strings.Join(args[4:], " ")

	pushed, err := container.TrackerManager().Push(cmd.Context(), taskName, projectRef, start, end, notes)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(pushed)
	}
	return formatter.Success("Pushed %s", output.EntryLine(pushed))
}
