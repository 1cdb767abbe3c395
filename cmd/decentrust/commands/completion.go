package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompletionCmd returns a command that prints a bash or zsh completion
// script for rootCmd. A hidden command is left out of the help listing.
func NewCompletionCmd(rootCmd *cobra.Command, hidden bool) *cobra.Command {
	const flagZsh = "zsh"
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Print a shell completion script",
		Long: fmt.Sprintf(`Print a Bash completion script, or a Zsh one with --zsh, to STDOUT.

Load completions for scenario replays into the current shell with:

   $ . <(%[1]s completion)

or keep them across sessions by adding the same line to $HOME/.bashrc.
Zsh users write the script into a directory on $fpath instead:

   $ %[1]s completion --zsh > "${fpath[1]}/_%[1]s"
`, rootCmd.Use),
		Args:   cobra.NoArgs,
		Hidden: hidden,
		RunE: func(cmd *cobra.Command, _ []string) error {
			zsh, err := cmd.Flags().GetBool(flagZsh)
			if err != nil {
				return err
			}
			if zsh {
				return rootCmd.GenZshCompletion(cmd.OutOrStdout())
			}
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool(flagZsh, false, "print a Zsh script instead of a Bash one")
	return cmd
}
