package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var includeSynced bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked entries",
		Long: `List the tracked entries. Synced entries are hidden unless
--include-synced is given. The active entry is marked with a star.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, includeSynced)
		},
	}

	cmd.Flags().BoolVarP(&includeSynced, "include-synced", "a", false, "include entries already synced to billing")

	return cmd
}

func runList(cmd *cobra.Command, includeSynced bool) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	entries, err := container.TrackerManager().List(cmd.Context(), includeSynced)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(entries)
	}

	active, err := container.TrackerManager().Status(cmd.Context())
	if err != nil {
		return err
	}
	if active != nil {
		formatter.Println("Tracking %s", output.EntryLine(active))
	} else {
		formatter.Println("%s", formatter.Dim("Not tracking anything"))
	}

	if len(entries) == 0 {
		return formatter.Println("%s", formatter.Dim("No entries"))
	}
	return formatter.Table(output.EntryTable(entries))
}
