package presentation

import (
	"fmt"
	"math"

	"github.com/charlie0129/battime/pkg/power"
)

// ChargedIcon is shown once no further charge increase is expected.
const ChargedIcon = "battery-level-100-charged-symbolic"

// DisplayState is what a presentation sink renders.
type DisplayState struct {
	Visible bool `json:"visible"`
	// IconID is a symbolic icon name from the battery-level-* family.
	IconID string `json:"iconId,omitempty"`
	// FallbackIconID is the source's own icon name, for icon themes that
	// lack the level icons.
	FallbackIconID string `json:"fallbackIconId,omitempty"`
	// Label is the remaining time when known, otherwise the percentage.
	Label string `json:"label,omitempty"`
	// PercentageLabel always holds the percentage.
	PercentageLabel string `json:"percentageLabel,omitempty"`
}

// Deriver turns snapshots into display states. Implementations must be
// pure: the same snapshot always yields the same state.
type Deriver interface {
	Derive(s power.Snapshot) DisplayState
}

// Default is the stock Deriver.
type Default struct {
	Formatter *Formatter
}

var _ Deriver = Default{}

// NewDeriver returns a Default deriver. A nil formatter selects
// DefaultFormatter.
func NewDeriver(f *Formatter) Default {
	if f == nil {
		f = DefaultFormatter()
	}
	return Default{Formatter: f}
}

func (d Default) Derive(s power.Snapshot) DisplayState {
	return Derive(s, d.Formatter)
}

// Derive maps a snapshot to a display state. Out-of-range numbers are
// clamped first, so it never fails.
func Derive(s power.Snapshot, f *Formatter) DisplayState {
	if !s.IsPresent {
		return DisplayState{Visible: false}
	}
	if f == nil {
		f = DefaultFormatter()
	}

	s = s.Clamp()
	percentLabel := f.Percent(s.Percentage)

	label := percentLabel
	// Zero means upowerd has no estimate yet, not "zero minutes left".
	if remaining := Remaining(s); remaining > 0 {
		label = f.Duration(remaining)
	}

	return DisplayState{
		Visible:         true,
		IconID:          IconName(s.State, FillLevel(s.Percentage)),
		FallbackIconID:  s.IconName,
		Label:           label,
		PercentageLabel: percentLabel,
	}
}

// FillLevel rounds a percentage down to the nearest ten.
func FillLevel(percentage float64) int {
	switch {
	case math.IsNaN(percentage), percentage <= 0:
		return 0
	case percentage >= 100:
		return 100
	}
	return 10 * int(math.Floor(percentage/10))
}

// IconName selects the level icon for a state and fill level.
func IconName(state power.DeviceState, fillLevel int) string {
	if Charged(state, fillLevel) {
		return ChargedIcon
	}
	suffix := ""
	if state == power.Charging {
		suffix = "-charging"
	}
	return fmt.Sprintf("battery-level-%d%s-symbolic", fillLevel, suffix)
}

// Charged reports whether the battery should be shown as full.
func Charged(state power.DeviceState, fillLevel int) bool {
	return state == power.FullyCharged || (state == power.Charging && fillLevel == 100)
}

// Remaining is the time to full while charging and the time to empty
// otherwise, in seconds.
func Remaining(s power.Snapshot) int64 {
	if s.State == power.Charging {
		return s.TimeToFull
	}
	return s.TimeToEmpty
}
