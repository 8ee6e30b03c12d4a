package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/daemon"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
)

type statusJSON struct {
	Source        string                     `json:"source"`
	Display       *presentation.DisplayState `json:"display"`
	Battery       *statusBatteryJSON         `json:"battery"`
	Sync          statusSyncJSON             `json:"sync"`
	Configuration statusConfigJSON           `json:"configuration"`
}

type statusBatteryJSON struct {
	Present            bool    `json:"present"`
	Percentage         float64 `json:"percentage"`
	State              string  `json:"state"`
	TimeToFullSeconds  *int64  `json:"timeToFullSeconds"`
	TimeToEmptySeconds *int64  `json:"timeToEmptySeconds"`
	VendorIconName     string  `json:"vendorIconName,omitempty"`
}

type statusSyncJSON struct {
	Syncs       uint64     `json:"syncs"`
	Errors      uint64     `json:"errors"`
	LastSync    *time.Time `json:"lastSync"`
	LastError   string     `json:"lastError,omitempty"`
	Subscribers int        `json:"subscribers"`
}

type statusConfigJSON struct {
	Source              string `json:"source"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
	Locale              string `json:"locale"`
	PercentSeparator    string `json:"percentSeparator"`
	AllowOtherUsers     bool   `json:"allowOtherUsers"`
	MetricsAddress      string `json:"metricsAddress,omitempty"`
}

// positiveOrNil maps "no estimate" to null.
func positiveOrNil(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func buildStatusJSON(st *daemon.StatusResponse, conf config.Config) statusJSON {
	out := statusJSON{
		Source:  st.Source,
		Display: st.Display,
		Sync: statusSyncJSON{
			Syncs:       st.Stats.Syncs,
			Errors:      st.Stats.Errors,
			LastError:   st.Stats.LastError,
			Subscribers: st.Subscribers,
		},
		Configuration: statusConfigJSON{
			Source:              conf.Source(),
			PollIntervalSeconds: int(conf.PollInterval() / time.Second),
			Locale:              conf.Locale(),
			PercentSeparator:    conf.PercentSeparator(),
			AllowOtherUsers:     conf.AllowOtherUsers(),
			MetricsAddress:      conf.MetricsAddress(),
		},
	}

	if !st.Stats.LastSync.IsZero() {
		t := st.Stats.LastSync
		out.Sync.LastSync = &t
	}

	if st.Snapshot != nil {
		s := *st.Snapshot
		out.Battery = &statusBatteryJSON{
			Present:            s.IsPresent,
			Percentage:         s.Percentage,
			State:              s.State.String(),
			VendorIconName:     s.IconName,
			TimeToFullSeconds:  positiveOrNil(s.TimeToFull),
			TimeToEmptySeconds: positiveOrNil(s.TimeToEmpty),
		}
		if s.State != power.Charging {
			out.Battery.TimeToFullSeconds = nil
		}
	}

	return out
}

func printStatusJSON(cmd *cobra.Command, st *daemon.StatusResponse, conf config.Config) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(buildStatusJSON(st, conf))
}
