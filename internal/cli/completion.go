// Package cli implements the command-line interface for the reglet host's
// plugin administration surface.
package cli

import (
	"github.com/spf13/cobra"
)

// newCompletionCommand creates the "completion" command that generates
// shell completion scripts for bash, zsh, fish, and powershell.
//
// Usage:
//
//	regletctl completion bash > /etc/bash_completion.d/regletctl
//	regletctl completion zsh > ~/.zsh/completions/_regletctl
//	regletctl completion fish > ~/.config/fish/completions/regletctl.fish
//	regletctl completion powershell > regletctl.ps1
func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for regletctl.

To load completions:

Bash:
  $ source <(regletctl completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ regletctl completion bash > /etc/bash_completion.d/regletctl
  # macOS:
  $ regletctl completion bash > $(brew --prefix)/etc/bash_completion.d/regletctl

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ regletctl completion zsh > "${fpath[1]}/_regletctl"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ regletctl completion fish | source

  # To load completions for each session, execute once:
  $ regletctl completion fish > ~/.config/fish/completions/regletctl.fish

PowerShell:
  PS> regletctl completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> regletctl completion powershell > regletctl.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return cmd.Help()
			}
		},
	}

	return cmd
}

// registerOutputFormatCompletion registers tab completion for the --output
// flag on the root command: "table", "json", "yaml".
func registerOutputFormatCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"table\tHuman-readable table (default)",
			"json\tJSON output for scripting",
			"yaml\tYAML output",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}
