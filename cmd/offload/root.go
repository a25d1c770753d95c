package main

import (
	"io"

	"github.com/spf13/cobra"
)

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "offload",
		Short: "Run blocking work on an elastic pool of OS threads.",
		Long: `offload exercises an elastic pool of OS-thread-pinned workers.

Every setting can come from a flag, an OFFLOAD_* environment variable
or a configuration file passed with --config.`,
		SilenceUsage: true,
	}

	rc.AddCommand(newRunCommand(stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}
