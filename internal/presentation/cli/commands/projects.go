package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewProjectsCmd creates the projects command.
func NewProjectsCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List known projects",
		Long: `List the cached projects. With --remote, refresh the cache from the
billing service first; this is the only way new projects become
available for 'start'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects(cmd, remote)
		},
	}

	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "refresh the project cache from the billing service")

	return cmd
}

func runProjects(cmd *cobra.Command, remote bool) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	if remote {
		if _, err := container.SyncEngine().RefreshProjects(cmd.Context()); err != nil {
			return err
		}
	}

	projects, err := container.ProjectRepository().List(cmd.Context())
	if err != nil {
		return err
	}
	nicknames, err := container.ProjectRepository().Nicknames(cmd.Context())
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(struct {
			Projects  any `json:"projects"`
			Nicknames any `json:"nicknames"`
		}{projects, nicknames})
	}

	if len(projects) == 0 {
		formatter.Println("%s", formatter.Dim("No cached projects"))
		return formatter.Println("Run 'ttracker projects --remote' to fetch them.")
	}

	// Invert the nickname map for display.
	byProject := make(map[string]string, len(nicknames))
	for name, id := range nicknames {
		if existing := byProject[id]; existing != "" {
			byProject[id] = existing + ", " + name
		} else {
			byProject[id] = name
		}
	}

	data := output.TableData{
		Columns: []output.TableColumn{
			{Header: "ID"},
			{Header: "NAME"},
			{Header: "NICKNAMES"},
		},
	}
	for _, p := range projects {
		data.Rows = append(data.Rows, []string{p.ID, p.Name, byProject[p.ID]})
	}
	return formatter.Table(data)
}
