package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/battime/pkg/client"
	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/gui"
)

var (
	logLevel       = "info"
	unixSocketPath = defaultSocketPath()
	configPath     = config.DefaultPath()

	apiClient *client.Client
)

var (
	gBasic        = "Basic:"
	gDisplay      = "Display:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gDisplay,
		gAdvanced,
		gInstallation,
	}
)

// defaultSocketPath puts the socket in the user's runtime dir, since the
// daemon runs as a systemd user service.
func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "battime.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("battime-%d.sock", os.Getuid()))
}

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: battime daemon is not running")
		fmt.Fprintln(os.Stderr, "  - Start it in the foreground with 'battime daemon'")
		fmt.Fprintln(os.Stderr, "  - Or install it as a systemd user service with 'battime install'")
		fmt.Fprintln(os.Stderr, "  - 'battime show' works without a daemon")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintf(os.Stderr, "  - The daemon socket %s belongs to another user\n", unixSocketPath)
		fmt.Fprintln(os.Stderr, "  - Restart the daemon with '--allow-other-users' to share it")
	}
}

func main() {
	// battime does not need to use much.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(2)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

// skipVersionCheck lists commands that do not talk to a running daemon.
var skipVersionCheck = map[string]bool{
	"daemon":    true,
	"show":      true,
	"version":   true,
	"install":   true,
	"uninstall": true,
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battime",
		Short: "battime shows battery charge and remaining time on Linux",
		Long: `battime shows battery charge and remaining time on Linux.

It follows UPower (or the kernel battery readout when UPower is unavailable) and
turns every power reading into an icon name, a short label ("1:30" or "73 %")
and a percentage label, for the terminal, a tray icon, or any program talking to
the battime daemon.

Website: https://github.com/charlie0129/battime
Report issues: https://github.com/charlie0129/battime/issues`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			if skipVersionCheck[cmd.Name()] {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Restart the daemon after upgrading battime.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("battime daemon is too old to report its version. Restart the daemon after upgrading battime.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "battime daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewShowCommand(),
		NewWatchCommand(),
		NewRefreshCommand(),
		NewLocaleCommand(),
		NewPercentSeparatorCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
		gui.NewGUICommand(&unixSocketPath, &configPath, gDisplay),
	)

	return cmd
}
