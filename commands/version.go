package commands

import "github.com/spf13/cobra"

// Version is overridden at build time via -ldflags.
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the find-free-gpu version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("find-free-gpu version %s\n", Version)
		},
	}
}
