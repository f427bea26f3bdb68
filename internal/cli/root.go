// Package cli holds the archivectl commands.
package cli

import (
	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	NoColor bool
}

// NewRootCommand creates the archivectl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "archivectl",
		Short: "Operate a kind 4 direct message archive",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.NoColor {
				color.Disable()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}
