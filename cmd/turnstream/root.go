package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=v1.0.0".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "turnstream",
		Short:         "turnstream — interactive conversation core for a coding agent CLI",
		Long:          "turnstream drives an agent CLI subprocess, dispatches its events into a terminal history, and manages session rollouts, resume targets, and branches.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newChatCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "turnstream %s\n", version)
			return nil
		},
	}
}
