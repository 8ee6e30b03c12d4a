package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Config interface {
	// Source is the power source kind: auto, upower or battery.
	Source() string
	PollInterval() time.Duration
	Locale() string
	PercentSeparator() string
	AllowOtherUsers() bool
	MetricsAddress() string

	SetSource(string)
	SetPollInterval(time.Duration)
	SetLocale(string)
	SetPercentSeparator(string)
	SetAllowOtherUsers(bool)
	SetMetricsAddress(string)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error

	LogrusFields() logrus.Fields
}
