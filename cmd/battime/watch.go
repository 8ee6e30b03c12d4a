package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Print the display state every time it changes",
		Long: `Print the display state every time it changes.

The current state is printed first. With --raw every daemon event is printed as one JSON line, which is handy for status bars.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}

			for ev := range ch {
				if raw {
					fmt.Fprintf(cmd.OutOrStdout(), "{\"event\":%q,\"data\":%s}\n", ev.Name, ev.Data)
					continue
				}

				switch ev.Name {
				case events.DisplayChanged:
					payload, err := events.DecodeAs[events.DisplayChangedEvent](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode display.changed event")
						continue
					}
					printDisplayLine(cmd, payload.Display)
				case events.SourceError:
					payload, err := events.DecodeAs[events.SourceErrorEvent](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode source.error event")
						continue
					}
					logrus.WithField("source", payload.Source).Warn(payload.Message)
				}
			}

			if ctx.Err() != nil {
				return nil
			}
			return pkgerrors.New("daemon closed the event stream")
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print events as JSON lines")

	return cmd
}
