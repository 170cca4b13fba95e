// Command syncclient is a minimal demonstration client for the sliding
// sync engine: it loads a config file, opens a bbolt-backed state store,
// and drives the long-poll loop until interrupted.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("syncclient exited with error")
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every subcommand, mirroring the
// RootOptions pattern used to thread global flags through a cobra command
// tree without a package-level global.
type rootOptions struct {
	ConfigPath string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "syncclient",
		Short: "Drive a Matrix simplified sliding sync session",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "syncclient.yaml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newExportStateCommand(opts))

	return cmd
}
