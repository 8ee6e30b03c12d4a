package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/daemon"
)

type statusData struct {
	status *daemon.StatusResponse
	config *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	st, err := apiClient.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		status: st,
		config: conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of battime",
		Long:    `Get the battery state, the derived display state, and the daemon configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			conf := config.NewFileFromConfig(data.config, "")

			if asJSON {
				return printStatusJSON(cmd, data.status, conf)
			}

			printStatus(cmd, data.status, conf)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, st *daemon.StatusResponse, conf config.Config) {
	// Battery.
	cmd.Println(bold("Battery status:"))
	if st.Snapshot == nil {
		cmd.Println("  " + color.YellowString("No reading yet") + " (the power source has not answered)")
	} else {
		s := *st.Snapshot
		cmd.Printf("  Present: %s\n", bool2Text(s.IsPresent))
		if s.IsPresent {
			cmd.Printf("  Current charge: %s\n", bold("%.1f%%", s.Percentage))
			cmd.Printf("  State: %s\n", bold("%s", stateText(s.State)))
			cmd.Printf("  Time to full: %s\n", bold("%s", secondsText(s.TimeToFull)))
			cmd.Printf("  Time to empty: %s\n", bold("%s", secondsText(s.TimeToEmpty)))
		}
	}

	cmd.Println()

	// Display.
	cmd.Println(bold("Display:"))
	if st.Display == nil {
		cmd.Println("  -")
	} else if !st.Display.Visible {
		cmd.Println("  Hidden (no battery)")
	} else {
		d := *st.Display
		cmd.Printf("  Label: %s\n", bold("%s", d.Label))
		cmd.Printf("  Percentage label: %s\n", bold("%s", d.PercentageLabel))
		cmd.Printf("  Icon: %s\n", bold("%s", d.IconID))
		if d.FallbackIconID != "" {
			cmd.Printf("  Fallback icon: %s\n", d.FallbackIconID)
		}
	}

	cmd.Println()

	// Source.
	cmd.Println(bold("Power source:"))
	cmd.Printf("  Source: %s\n", bold("%s", st.Source))
	cmd.Printf("  Readings: %s\n", bold("%d", st.Stats.Syncs))
	if !st.Stats.LastSync.IsZero() {
		cmd.Printf("  Last reading: %s ago\n", time.Since(st.Stats.LastSync).Round(time.Second))
	}
	if st.Stats.Errors > 0 {
		cmd.Printf("  Failed readings: %s\n", color.RedString("%d", st.Stats.Errors))
	}
	if st.Stats.LastError != "" {
		cmd.Printf("  Last error: %s\n", color.RedString("%s", st.Stats.LastError))
	}
	cmd.Printf("  Event subscribers: %d\n", st.Subscribers)

	cmd.Println()

	// Config.
	cmd.Println(bold("Configuration:"))
	cmd.Printf("  Source: %s\n", bold("%s", conf.Source()))
	cmd.Printf("  Poll interval (battery source): %s\n", bold("%s", conf.PollInterval()))
	cmd.Printf("  Locale: %s\n", bold("%s", conf.Locale()))
	cmd.Printf("  Percent separator: %s\n", bold("%q", conf.PercentSeparator()))
	cmd.Printf("  Allow other users to access the daemon: %s\n", bool2Text(conf.AllowOtherUsers()))
	if addr := conf.MetricsAddress(); addr != "" {
		cmd.Printf("  Metrics address: %s\n", bold("%s", addr))
	}
}
