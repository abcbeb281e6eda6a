// Package cli implements the command-line interface for reglet host
// administration: installing, reviewing, and toggling WASM plugins.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goagain/reglet-host/internal/config"
	"github.com/goagain/reglet-host/internal/pluginregistry"
)

// NewRootCommand creates the top-level regletctl command.
func NewRootCommand(cfg *config.Config, reg *pluginregistry.Registry, logger *slog.Logger) *cobra.Command {
	var (
		outputFormat = &outputFormatValue{format: cfg.Output}
		quiet        bool
		resolved     = cfg.Output
	)

	root := &cobra.Command{
		Use:   "regletctl",
		Short: "Administer WASM plugins for a reglet host",
		Long: `regletctl installs, reviews, and toggles the capability-sandboxed
WASM plugins that a reglet host dispatches application events through.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Var(outputFormat, "output", "Output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&quiet, "quiet", cfg.Quiet, "Suppress plugin list/get output; other commands still print status")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		resolved = outputFormat.format
		if quiet {
			resolved = "quiet"
		}
		logger.Debug("dispatching command", slog.String("command", cmd.Name()), slog.String("output", resolved))
	}

	root.AddCommand(newCompletionCommand())
	root.AddCommand(newVersionCommand())

	if reg != nil {
		root.AddCommand(newPluginCommand(reg, &resolved))
	}

	registerOutputFormatCompletion(root)

	return root
}
