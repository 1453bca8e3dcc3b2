package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealbook/internal/config"
)

// configModeKey annotates a command with the config.Validate mode it runs
// under. Subcommands inherit the nearest annotated ancestor's mode.
const configModeKey = "dealbook/config-mode"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealbook",
	Short: "Revenue projections for booking requests",
	Long:  "Projects the revenue booking requests will generate from realized deals, business history and category benchmarks, and serves the projections over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		// serve --port wins over server.port before validation.
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		// Group commands such as "project" or "monitor" have no mode and
		// only print help.
		if mode := configMode(cmd); mode != "" {
			return cfg.Validate(mode)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// withConfigMode sets the validation mode for cmd and returns it.
func withConfigMode(cmd *cobra.Command, mode string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[configModeKey] = mode
	return cmd
}

// configMode returns the validation mode of cmd or its nearest annotated
// ancestor, or "" when none is set.
func configMode(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if mode, ok := c.Annotations[configModeKey]; ok {
			return mode
		}
	}
	return ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
