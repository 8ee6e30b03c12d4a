package gui

import (
	"context"
	"time"

	"github.com/getlantern/systray"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/client"
	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/events"
	"github.com/charlie0129/battime/pkg/indicator"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
	"github.com/charlie0129/battime/pkg/version"
)

// retryInterval is how long the tray waits before reconnecting to a
// daemon that went away.
const retryInterval = 5 * time.Second

func NewGUICommand(unixSocketPath *string, configPath *string, groupID string) *cobra.Command {
	var standalone bool

	cmd := &cobra.Command{
		Use:     "tray",
		Short:   "Show the battery state as a tray icon",
		GroupID: groupID,
		Long: `Show the battery state as a tray icon.

By default the tray icon follows the battime daemon. With --standalone it reads the power source itself and does not need a running daemon.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if standalone {
				return RunStandalone(*configPath)
			}
			Run(*unixSocketPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&standalone, "standalone", false, "read the power source directly instead of following the daemon")

	return cmd
}

// Run shows a tray icon driven by daemon events. It returns when the user
// quits.
func Run(unixSocketPath string) {
	apiClient := client.NewClient(unixSocketPath)
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("battime tray")

	ctx, cancel := context.WithCancel(context.Background())

	systray.Run(func() {
		t := newTray()
		go t.handleClicks(func() {
			d, err := apiClient.Refresh()
			if err != nil {
				logrus.WithError(err).Warn("refresh failed")
				return
			}
			t.Apply(d)
		})
		go startEventBridge(ctx, apiClient, t)
	}, func() {
		cancel()
		logrus.Info("battime tray exiting")
	})
}

// RunStandalone shows a tray icon fed by a local indicator.
func RunStandalone(configPath string) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to load config")
	}
	f, err := conf.Formatter()
	if err != nil {
		return pkgerrors.Wrapf(err, "invalid label format in config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := power.Open(ctx, conf.Source(), conf.PollInterval())
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open power source")
	}
	defer func() { _ = source.Close() }()

	runErr := make(chan error, 1)
	systray.Run(func() {
		t := newTray()
		t.quit.SetTooltip(quitTooltipStandalone)

		ind := indicator.New(source, presentation.NewDeriver(f), t)
		go t.handleClicks(func() { _, _ = ind.Sync(ctx) })
		go func() {
			if err := ind.Run(ctx); err != nil {
				runErr <- err
				logrus.WithError(err).Error("indicator stopped")
				systray.Quit()
			}
		}()
	}, func() {
		cancel()
		logrus.Info("battime tray exiting")
	})

	select {
	case err := <-runErr:
		return err
	default:
		return nil
	}
}

// startEventBridge keeps the tray in sync with the daemon, reconnecting
// whenever the event stream ends.
func startEventBridge(ctx context.Context, api *client.Client, t *tray) {
	for ctx.Err() == nil {
		if err := followDaemon(ctx, api, t); err != nil {
			logrus.WithError(err).Debug("lost daemon connection")
			t.render(offlineView(err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryInterval):
		}
	}
}

func followDaemon(ctx context.Context, api *client.Client, t *tray) error {
	evCh, err := api.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	for ev := range evCh {
		logrus.WithFields(logrus.Fields{
			"event": ev.Name,
			"data":  string(ev.Data),
		}).Debug("new event")

		switch ev.Name {
		case events.DisplayChanged:
			payload, err := events.DecodeAs[events.DisplayChangedEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode display.changed event")
				continue
			}
			t.Apply(payload.Display)
		case events.SourceError:
			payload, err := events.DecodeAs[events.SourceErrorEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode source.error event")
				continue
			}
			t.SourceError(payload.Source, pkgerrors.New(payload.Message))
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return pkgerrors.New("daemon closed the event stream")
}
