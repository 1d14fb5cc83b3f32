// Package commands implements the CLI commands for ttracker.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsuresh/ttracker/internal/application"
	"github.com/jsuresh/ttracker/internal/infrastructure/config"
	"github.com/jsuresh/ttracker/internal/presentation/cli/output"
)

// Version information - set at build time via ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GlobalFlags holds the global CLI flags.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	Verbose    bool
}

// AppContext holds the application runtime context.
type AppContext struct {
	Config    *config.Config
	Formatter *output.Formatter
	Flags     *GlobalFlags
	Container *application.Container
}

var (
	globalFlags GlobalFlags
	appCtx      *AppContext
	appCtxMu    sync.RWMutex // Protects appCtx for thread-safe access
)

// NewRootCmd creates the root command for the ttracker CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ttracker",
		Short: "ttracker - Offline-first time tracking with billing sync",
		Long: `ttracker records the time you spend on tasks in a local store and
pushes finished entries to your billing service when you ask it to.

Everything except 'sync', 'init', and 'projects --remote' works fully
offline. Starting a task while another is running switches to it,
closing the old entry at the same instant. The store assumes a single
ttracker process at a time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// init and config run before a usable configuration exists,
			// so they set up their own dependencies.
			switch cmd.Name() {
			case "help", "version", "completion", "init", "config":
				return nil
			}
			return initializeApp()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "config file path (default: ~/.ttracker/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "text", "output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewStartCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewDetailsCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewPopCmd())
	rootCmd.AddCommand(NewPushCmd())
	rootCmd.AddCommand(NewDeleteCmd())
	rootCmd.AddCommand(NewProjectsCmd())
	rootCmd.AddCommand(NewNicknameCmd())
	rootCmd.AddCommand(NewSyncCmd())

	return rootCmd
}

// initializeApp initializes the application context.
func initializeApp() error {
	format := output.FormatText
	if globalFlags.Output == "json" {
		format = output.FormatJSON
	}

	formatter := output.NewFormatter(
		output.WithFormat(format),
		output.WithColor(format != output.FormatJSON),
	)

	cfg, err := loadConfig(globalFlags.ConfigFile)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container, err := application.NewContainer(cfg, globalFlags.Verbose)
	if err != nil {
		return err
	}

	appCtxMu.Lock()
	appCtx = &AppContext{
		Config:    cfg,
		Formatter: formatter,
		Flags:     &globalFlags,
		Container: container,
	}
	appCtxMu.Unlock()

	return nil
}

// loadConfig loads configuration from the specified file or default location.
func loadConfig(configPath string) (*config.Config, error) {
	loader, err := config.NewLoader("")
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}

	return loader.Load(configPath)
}

// GetAppContext returns the current application context.
// Returns nil if the app hasn't been initialized.
func GetAppContext() *AppContext {
	appCtxMu.RLock()
	defer appCtxMu.RUnlock()
	return appCtx
}

// GetFormatter returns the output formatter, creating a default one if
// the app context is not initialized.
func GetFormatter() *output.Formatter {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()

	if ctx != nil {
		return ctx.Formatter
	}
	return output.NewFormatter()
}

// GetContainer returns the application container.
// Returns nil if the app hasn't been initialized.
func GetContainer() *application.Container {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()

	if ctx != nil {
		return ctx.Container
	}
	return nil
}

// Shutdown releases container resources.
func Shutdown() {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()

	if appCtx != nil && appCtx.Container != nil {
		_ = appCtx.Container.Close()
	}
}

// Execute runs the root command with graceful shutdown support. The
// signal handler cancels the command's context, so long-running commands
// like watch unwind on their own before resources are released.
func Execute() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		rootCmd := NewRootCmd()
		errChan <- rootCmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			formatter := GetFormatter()
			formatter.Error("%s", err.Error())
			Shutdown()
			os.Exit(1)
		}
	case sig := <-sigChan:
		formatter := GetFormatter()
		formatter.Warning("Received signal %v, shutting down...", sig)
		cancel()
		// Give the command a moment to honor the cancellation; a command
		// stuck on something other than the context is abandoned.
		select {
		case <-errChan:
		case <-time.After(2 * time.Second):
		}
		Shutdown()
		os.Exit(130) // Standard exit code for SIGINT
	}

	Shutdown()
}
