package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/application"
	"github.com/jsuresh/ttracker/internal/infrastructure/config"
	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [username] [apikey]",
		Short: "Create the store and configure billing credentials",
		Long: `Initialize ttracker: save the billing credentials, create the local
store, and cache the project list from the billing service. Credentials
not given as arguments are prompted for.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), args)
		},
	}
}

func runInit(ctx context.Context, args []string) error {
	formatter := output.NewFormatter()

	loader, err := config.NewLoader("")
	if err != nil {
		return err
	}
	cfg, err := loader.Load(globalFlags.ConfigFile)
	if err != nil {
		return err
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
	formatter.Success("Saved credentials for %s", username)

	// Opening the container creates the store file and runs migrations.
	container, err := application.NewContainer(cfg, globalFlags.Verbose)
	if err != nil {
		return err
	}
	defer container.Close()
	formatter.Success("Store ready at %s", container.StorePath())

	projects, err := container.SyncEngine().RefreshProjects(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch projects: %w", err)
	}
	formatter.Success("Cached %d projects", len(projects))
	for _, p := range projects {
		formatter.Item(p.ID, p.Name)
	}

	return nil
}

// credentialsFromArgsOrPrompt fills in credentials missing from args by
// prompting on the terminal. The API key is read without echo.
func credentialsFromArgsOrPrompt(args []string) (username, apiKey string, err error) {
	if len(args) > 0 {
		username = args[0]
	}
	if len(args) > 1 {
		apiKey = args[1]
	}
	if username != "" && apiKey != "" {
		return username, apiKey, nil
	}

	rl, err := readline.New("billing username: ")
	if err != nil {
		return "", "", fmt.Errorf("could not open terminal prompt: %w", err)
	}
	defer rl.Close()

	if username == "" {
		line, err := rl.Readline()
		if err != nil {
			return "", "", err
		}
		username = strings.TrimSpace(line)
	}
	if apiKey == "" {
		secret, err := rl.ReadPassword("api key: ")
		if err != nil {
			return "", "", err
		}
		apiKey = strings.TrimSpace(string(secret))
	}

	if username == "" || apiKey == "" {
		return "", "", fmt.Errorf("username and api key are required")
	}
	return username, apiKey, nil
}
