package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/daemon"
	"github.com/charlie0129/battime/pkg/version"
)

var (
	// allowOtherUsers makes the daemon socket world-accessible.
	allowOtherUsers = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run battime daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run battime daemon in the foreground.

The daemon follows the power source, serves the current display state on its unix socket and streams changes to subscribers. Send SIGHUP to reload the config file.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("battime daemon starting")
			return daemon.Run(configPath, unixSocketPath, allowOtherUsers)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&allowOtherUsers, "allow-other-users", false,
		"Allow other users to access the daemon socket.")

	return cmd
}
