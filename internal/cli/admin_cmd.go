package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goagain/reglet-host/internal/output"
	"github.com/goagain/reglet-host/internal/pluginregistry"
	"github.com/goagain/reglet-host/internal/store"
)

// newPluginCommand creates the "plugin" management command group: the
// install/list/get/permissions/grant/approve/enable/disable/uninstall control surface.
// Lifecycle events (install, enable, disable, uninstall) are already logged
// by pluginregistry.Registry itself, so this layer stays free of its own
// logger dependency.
func newPluginCommand(reg *pluginregistry.Registry, outputFormat *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage installed plugins",
	}

	cmd.AddCommand(
		newPluginInstallCommand(reg),
		newPluginListCommand(reg, outputFormat),
		newPluginGetCommand(reg, outputFormat),
		newPluginPermissionsCommand(reg, outputFormat),
		newPluginGrantCommand(reg),
		newPluginApproveCommand(reg),
		newPluginEnableCommand(reg),
		newPluginDisableCommand(reg),
		newPluginUninstallCommand(reg),
	)

	return cmd
}

// newPluginInstallCommand creates "plugin install <archive.rpk>".
func newPluginInstallCommand(reg *pluginregistry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "install <archive.rpk>",
		Short: "Install a plugin archive",
		Long: `Install validates and persists a plugin archive. The plugin is
created in status "disabled"; run "plugin enable" to load it once its
required capabilities have been granted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading archive: %w", err)
			}

			manifest, analysis, err := reg.Install(cmd.Context(), data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Installed %s@%s\n", manifest.Package.ID, manifest.Package.Version)
			if len(analysis.NewRequiredCapabilities) > 0 {
				fmt.Fprintf(out, "Required capabilities: %s\n", strings.Join(analysis.NewRequiredCapabilities, ", "))
				fmt.Fprintln(out, `Grant them with "plugin approve" before enabling.`)
			}
			return nil
		},
	}
}

// newPluginListCommand creates "plugin list".
func newPluginListCommand(reg *pluginregistry.Registry, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderRecords(cmd, *outputFormat, reg.Store().ListAll)
		},
	}
}

// newPluginGetCommand creates "plugin get <plugin_id>".
func newPluginGetCommand(reg *pluginregistry.Registry, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <plugin_id>",
		Short: "Show one plugin's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := reg.Store().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter, err := output.NewFormatter(*outputFormat)
			if err != nil {
				return err
			}
			return formatter.Format(cmd.OutOrStdout(), []store.Record{rec})
		},
	}
}

// newPluginPermissionsCommand creates "plugin permissions <plugin_id>".
func newPluginPermissionsCommand(reg *pluginregistry.Registry, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <plugin_id>",
		Short: "Show a plugin's granted capabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := reg.Store().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rec.GrantedCapabilities) == 0 {
				fmt.Fprintln(out, "(no capabilities granted)")
				return nil
			}
			for _, capability := range rec.GrantedCapabilities {
				fmt.Fprintln(out, capability)
			}
			return nil
		},
	}
}

// newPluginGrantCommand creates "plugin grant <plugin_id> <capability>...".
// This is update_grants (spec.md §4.3): it records a grant without
// attempting to enable the plugin, for operators auditing before approval.
func newPluginGrantCommand(reg *pluginregistry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <plugin_id> <capability>...",
		Short: "Record additional granted capabilities without enabling",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pluginID, caps := args[0], args[1:]
			ctx := cmd.Context()
			rec, err := reg.Store().Get(ctx, pluginID)
			if err != nil {
				return err
			}
			rec.GrantedCapabilities = unionStrings(rec.GrantedCapabilities, caps)
			if err := reg.Store().Update(ctx, rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %s to %s\n", strings.Join(caps, ", "), pluginID)
			return nil
		},
	}
}

// newPluginApproveCommand creates "plugin approve <plugin_id> [capability...]".
func newPluginApproveCommand(reg *pluginregistry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <plugin_id> [capability...]",
		Short: "Approve a pending_review plugin and attempt to enable it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := reg.ApproveReview(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return reportEnableResult(cmd, args[0], result)
		},
	}
}

// newPluginEnableCommand creates "plugin enable <plugin_id>".
func newPluginEnableCommand(reg *pluginregistry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <plugin_id>",
		Short: "Load a disabled plugin's bytecode and register its hooks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := reg.Enable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return reportEnableResult(cmd, args[0], result)
		},
	}
}

// newPluginDisableCommand creates "plugin disable <plugin_id>".
func newPluginDisableCommand(reg *pluginregistry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <plugin_id>",
		Short: "Unload a plugin without deleting its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reg.Disable(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disabled %s\n", args[0])
			return nil
		},
	}
}

// newPluginUninstallCommand creates "plugin uninstall <plugin_id>".
func newPluginUninstallCommand(reg *pluginregistry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <plugin_id>",
		Short: "Disable and permanently remove a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reg.Uninstall(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", args[0])
			return nil
		},
	}
}

func reportEnableResult(cmd *cobra.Command, pluginID string, result pluginregistry.EnableResult) error {
	out := cmd.OutOrStdout()
	if result.RequiresReview {
		fmt.Fprintf(out, "%s requires review: missing capabilities %s\n", pluginID, strings.Join(result.Missing, ", "))
		return nil
	}
	fmt.Fprintf(out, "Enabled %s\n", pluginID)
	return nil
}

func renderRecords(cmd *cobra.Command, outputFormat string, list func(context.Context) ([]store.Record, error)) error {
	records, err := list(cmd.Context())
	if err != nil {
		return err
	}
	formatter, err := output.NewFormatter(outputFormat)
	if err != nil {
		return err
	}
	return formatter.Format(cmd.OutOrStdout(), records)
}

func unionStrings(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, s := range append(append([]string{}, existing...), extra...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
