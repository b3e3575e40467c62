package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/navroute/internal/config"
	"github.com/vyrodovalexey/navroute/internal/observability"
)

const configEnv = "NAVROUTE_CONFIG"

// cliFlags holds the persistent command line flags.
type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// app is the state shared by subcommands once the root pre-run finished.
type app struct {
	flags  cliFlags
	config *config.Config
	logger observability.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "navroute",
		Short: "Resolve locations against a declarative route table",
		Long: `navroute matches locations against the routes declared in a
configuration file, infers application roots, builds paths from named
routes and drives a router from a location file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.flags.configPath, "config", os.Getenv(configEnv),
		"Path to configuration file (env "+configEnv+")")
	cmd.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "",
		"Log level (debug, info, warn, error), overrides the configuration")
	cmd.PersistentFlags().StringVar(&a.flags.logFormat, "log-format", "",
		"Log format (json, console), overrides the configuration")

	cmd.AddCommand(
		matchCmd(a),
		rootCmd(a),
		generateCmd(a),
		resolveCmd(a),
		watchCmd(a),
		versionCmd(),
	)

	return cmd
}

// init loads and validates the configuration and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	cfg := config.DefaultConfig()
	if a.flags.configPath != "" {
		loaded, err := config.LoadConfig(a.flags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.logFormat != "" {
		cfg.Logging.Format = a.flags.logFormat
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.LogConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	observability.SetGlobalLogger(logger)

	a.config = cfg
	a.logger = logger
	return nil
}
