package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewNicknameCmd creates the nickname command.
func NewNicknameCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "nickname [name] [project-id]",
		Short: "Manage project nicknames",
		Long: `Manage short names for project ids. With no arguments, list the
current mappings. With a name and a project id, create or update a
mapping. With --delete and a name, remove it.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNickname(cmd, args, remove)
		},
	}

	cmd.Flags().BoolVarP(&remove, "delete", "d", false, "delete the named mapping")

	return cmd
}

func runNickname(cmd *cobra.Command, args []string, remove bool) error {
	container := GetContainer()
	formatter := GetFormatter()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	projects := container.ProjectRepository()

	switch {
	case remove:
		if len(args) != 1 {
			return fmt.Errorf("usage: ttracker nickname --delete <name>")
		}
		if err := projects.DeleteNickname(cmd.Context(), args[0]); err != nil {
			return err
		}
		return formatter.Success("Removed nickname %q", args[0])

	case len(args) == 2:
		name, projectID := args[0], args[1]
		if p, err := projects.Get(cmd.Context(), projectID); err != nil {
			return err
		} else if p == nil {
			formatter.Warning("Project %s is not in the local cache", projectID)
			formatter.Println("Run 'ttracker projects --remote' to refresh it.")
		}
		if err := projects.SetNickname(cmd.Context(), name, projectID); err != nil {
			return err
		}
		return formatter.Success("%s -> %s", name, projectID)

	case len(args) == 0:
		nicknames, err := projects.Nicknames(cmd.Context())
		if err != nil {
			return err
		}
		if formatter.Format() == output.FormatJSON {
			return formatter.JSON(nicknames)
		}
		if len(nicknames) == 0 {
			return formatter.Println("%s", formatter.Dim("No nicknames defined"))
		}
		names := make([]string, 0, len(nicknames))
		for name := range nicknames {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := formatter.Item(name, nicknames[name]); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("usage: ttracker nickname [name] [project-id]")
	}
}
