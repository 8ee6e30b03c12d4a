// Package metrics exposes the indicator's view of the battery to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/charlie0129/battime/pkg/indicator"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
)

// Provider is the read side of an indicator.
type Provider interface {
	SourceName() string
	LastSnapshot() (power.Snapshot, bool)
	Stats() indicator.Stats
}

var allStates = []power.DeviceState{
	power.Unknown,
	power.Charging,
	power.Discharging,
	power.Empty,
	power.FullyCharged,
	power.PendingCharge,
	power.PendingDischarge,
}

// Collector implements prometheus.Collector for the last battery snapshot
type Collector struct {
	provider Provider

	present          *prometheus.Desc
	percentage       *prometheus.Desc
	fillLevel        *prometheus.Desc
	state            *prometheus.Desc
	secondsRemaining *prometheus.Desc
	sourceUp         *prometheus.Desc
	syncs            *prometheus.Desc
	errors           *prometheus.Desc
}

// NewCollector creates a collector reading from p
func NewCollector(p Provider) *Collector {
	return &Collector{
		provider: p,
		present: prometheus.NewDesc(
			"battime_battery_present",
			"Whether a battery is present (1=yes, 0=no)",
			[]string{"source"},
			nil,
		),
		percentage: prometheus.NewDesc(
			"battime_battery_percentage",
			"Battery charge in percent",
			[]string{"source"},
			nil,
		),
		fillLevel: prometheus.NewDesc(
			"battime_battery_fill_level",
			"Battery charge rounded down to the nearest ten percent",
			[]string{"source"},
			nil,
		),
		state: prometheus.NewDesc(
			"battime_battery_state",
			"Battery state (1 for the current state, 0 otherwise)",
			[]string{"source", "state"},
			nil,
		),
		secondsRemaining: prometheus.NewDesc(
			"battime_battery_seconds_remaining",
			"Estimated seconds until full while charging, until empty otherwise (0=unknown)",
			[]string{"source"},
			nil,
		),
		sourceUp: prometheus.NewDesc(
			"battime_source_up",
			"Whether the last read from the power source succeeded",
			[]string{"source"},
			nil,
		),
		syncs: prometheus.NewDesc(
			"battime_syncs_total",
			"Number of successful snapshot reads",
			[]string{"source"},
			nil,
		),
		errors: prometheus.NewDesc(
			"battime_source_errors_total",
			"Number of failed snapshot reads",
			[]string{"source"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.present
	ch <- c.percentage
	ch <- c.fillLevel
	ch <- c.state
	ch <- c.secondsRemaining
	ch <- c.sourceUp
	ch <- c.syncs
	ch <- c.errors
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	source := c.provider.SourceName()
	stats := c.provider.Stats()

	ch <- prometheus.MustNewConstMetric(c.syncs, prometheus.CounterValue, float64(stats.Syncs), source)
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(stats.Errors), source)

	s, ok := c.provider.LastSnapshot()
	up := 0.0
	if ok && stats.LastError == "" {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.sourceUp, prometheus.GaugeValue, up, source)

	if !ok {
		// Nothing read yet; do not pretend the battery is at 0%.
		return
	}

	present := 0.0
	if s.IsPresent {
		present = 1
	}
	ch <- prometheus.MustNewConstMetric(c.present, prometheus.GaugeValue, present, source)
	if !s.IsPresent {
		return
	}

	s = s.Clamp()
	ch <- prometheus.MustNewConstMetric(c.percentage, prometheus.GaugeValue, s.Percentage, source)
	ch <- prometheus.MustNewConstMetric(c.fillLevel, prometheus.GaugeValue, float64(presentation.FillLevel(s.Percentage)), source)
	ch <- prometheus.MustNewConstMetric(c.secondsRemaining, prometheus.GaugeValue, float64(presentation.Remaining(s)), source)

	for _, st := range allStates {
		v := 0.0
		if st == s.State {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, source, st.String())
	}
}

// NewRegistry returns a registry holding the battime collector plus the
// standard Go and process collectors.
func NewRegistry(p Provider) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(p),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
