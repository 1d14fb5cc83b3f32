package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/infrastructure/storage"
	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the store and re-render the entry list on change",
		Long: `Render the entry list and keep it current as other terminals start and
stop entries. Runs until interrupted.`,
		RunE: runWatch,
	}

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	watcher, err := storage.NewWatcher(container.StorePath(), storage.DefaultWatcherConfig())
	if err != nil {
		return err
	}
	defer watcher.Close()

	ctx := cmd.Context()
	if err := watcher.Watch(ctx); err != nil {
		return err
	}

	if err := renderWatch(cmd); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Changes():
			if !ok {
				return nil
			}
			if err := renderWatch(cmd); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			container.Logger().Warn("store watcher error", "error", err)
		}
	}
}

func renderWatch(cmd *cobra.Command) error {
	container := GetContainer()
	formatter := GetFormatter()

	entries, err := container.TrackerManager().List(cmd.Context(), false)
	if err != nil {
		return err
	}
	active, err := container.TrackerManager().Status(cmd.Context())
	if err != nil {
		return err
	}

	// Clear the screen and move the cursor home before each render.
	formatter.Print("\033[2J\033[H")

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
