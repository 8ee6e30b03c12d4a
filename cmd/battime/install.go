package main

import (
	"fmt"
	"net"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/power"
	daemonutils "github.com/charlie0129/battime/pkg/utils/daemon"
)

// installOptions are the config keys install can set. Only flags the user
// changed are written.
type installOptions struct {
	source         string
	pollInterval   time.Duration
	metricsAddress string
}

func applyInstallOptions(conf config.Config, opts installOptions, changed func(name string) bool) error {
	if changed("source") {
		switch opts.source {
		case power.SourceAuto, power.SourceUPower, power.SourceBattery:
		default:
			return fmt.Errorf("%w: %q (want auto, upower or battery)", power.ErrUnknownSource, opts.source)
		}
		conf.SetSource(opts.source)
	}

	if changed("poll-interval") {
		if opts.pollInterval < time.Second {
			return fmt.Errorf("poll interval must be at least 1s, got %s", opts.pollInterval)
		}
		conf.SetPollInterval(opts.pollInterval)
	}

	if changed("metrics-address") {
		if opts.metricsAddress != "" {
			if _, _, err := net.SplitHostPort(opts.metricsAddress); err != nil {
				return fmt.Errorf("invalid metrics address %q: %v", opts.metricsAddress, err)
			}
		}
		conf.SetMetricsAddress(opts.metricsAddress)
	}

	return nil
}

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowOtherUsers := false
	var opts installOptions

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install battime as a systemd user service",
		GroupID: gInstallation,
		Long: `Install battime daemon as a systemd user service.

This makes battime run in the background and start with your session. Do not run this command as root.

By default, only you can access the daemon socket. Use --allow-other-users to let other local users read the battery state as well.

--source, --poll-interval and --metrics-address are written to the config file before the service starts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if os.Geteuid() == 0 {
				logrus.Warn("installing as root: the service will belong to root's user session")
			}

			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			if err := applyInstallOptions(conf, opts, cmd.Flags().Changed); err != nil {
				return err
			}

			conf.SetAllowOtherUsers(allowOtherUsers)
			if allowOtherUsers {
				logrus.Info("other users are allowed to access the battime daemon.")
			} else {
				logrus.Info("only you are allowed to access the battime daemon.")
			}

			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = daemonutils.Install(configPath, unixSocketPath)
			if err != nil {
				return fmt.Errorf("failed to install daemon: %v", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("`systemd' will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run ``battime install'' again.\n", exePath)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&allowOtherUsers, "allow-other-users", false, "Allow other users to access battime daemon.")
	flags.StringVar(&opts.source, "source", power.SourceAuto, "power source (auto, upower, battery)")
	flags.DurationVar(&opts.pollInterval, "poll-interval", power.DefaultPollInterval, "poll interval of the battery source")
	flags.StringVar(&opts.metricsAddress, "metrics-address", "", "also serve /metrics on this TCP address, e.g. 127.0.0.1:9184 (empty disables)")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the battime systemd user service",
		GroupID: gInstallation,
		Long: `Uninstall the battime systemd user service.

This stops the daemon and removes its unit file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			fmt.Println("successfully uninstalled")

			cmd.Printf("Your config is kept in %s, in case you want to use `battime' again. If you want a complete uninstall, you can remove both config file and battime itself manually.\n", configPath)

			return nil
		},
	}

	return cmd
}
