package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/infrastructure/config"
	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "config [username] [apikey]",
		Short: "Update billing credentials",
		Long: `Update the stored billing credentials. Credentials not given as
arguments are prompted for. The rest of the configuration is left
untouched.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(args, show)
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the current configuration instead of updating it")

	return cmd
}

func runConfig(args []string, show bool) error {
	formatter := output.NewFormatter()

	loader, err := config.NewLoader("")
	if err != nil {
		return err
	}
	cfg, err := loader.Load(globalFlags.ConfigFile)
	if err != nil {
		return err
	}

	if show {
		formatter.Item("store", cfg.Store.Path)
		formatter.Item("username", cfg.Billing.Username)
		if cfg.Billing.APIKey != "" {
			formatter.Item("api key", "(set)")
		} else {
			formatter.Item("api key", "(unset)")
		}
		formatter.Item("endpoint", cfg.Billing.Endpoint())
		return nil
	}

	username, apiKey, err := credentialsFromArgsOrPrompt(args)
	if err != nil {
		return err
	}
	cfg.Billing.Username = username
	cfg.Billing.APIKey = apiKey

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := loader.Save(cfg, globalFlags.ConfigFile); err != nil {
		return err
	}

	return formatter.Success("Saved credentials for %s", username)
}
