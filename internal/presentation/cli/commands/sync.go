package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	appsync "github.com/jsuresh/ttracker/internal/application/sync"
	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local entries to the billing service",
		Long: `Push unsynced entries to the billing service, creating remote tasks as
needed, and retract entries and tasks deleted locally. An open entry is
never sent. With --all, previously synced entries are re-sent as
updates, which repairs remote edits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "re-send already synced entries as updates")

	return cmd
}

func runSync(cmd *cobra.Command, all bool) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	report, err := container.SyncEngine().Run(cmd.Context(), appsync.Options{All: all})
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		if err := formatter.JSON(report); err != nil {
			return err
		}
		if report.Failed() {
			return fmt.Errorf("%d entries failed to sync", len(report.Failures))
		}
		return nil
	}

	formatter.Item("created", fmt.Sprintf("%d", report.Created))
	formatter.Item("updated", fmt.Sprintf("%d", report.Updated))
	formatter.Item("retracted", fmt.Sprintf("%d", report.Retracted))

	if report.Pending != nil {
		formatter.Info("Still tracking %s, stop it to sync this entry", report.Pending.TaskName)
	}

	for _, failure := range report.Failures {
		formatter.Error("%s: %v", failure.TaskName, failure.Err)
	}
	if report.Failed() {
		return fmt.Errorf("%d entries failed to sync", len(report.Failures))
	}

	formatter.Success("Sync complete")
	return nil
}
