package power

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// DeviceState is the charge state of a power device. The numeric values
// match org.freedesktop.UPower.Device.State.
type DeviceState uint32

const (
	Unknown DeviceState = iota
	Charging
	Discharging
	Empty
	FullyCharged
	PendingCharge
	PendingDischarge
)

var deviceStates = [...]string{
	"unknown",
	"charging",
	"discharging",
	"empty",
	"fully-charged",
	"pending-charge",
	"pending-discharge",
}

func (s DeviceState) String() string {
	if int(s) >= len(deviceStates) {
		return deviceStates[Unknown]
	}
	return deviceStates[s]
}

// ParseDeviceState is the inverse of DeviceState.String.
func ParseDeviceState(name string) (DeviceState, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, s := range deviceStates {
		if s == name {
			return DeviceState(i), nil
		}
	}
	return Unknown, fmt.Errorf("invalid device state %q", name)
}

func (s DeviceState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DeviceState) UnmarshalText(b []byte) error {
	v, err := ParseDeviceState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Snapshot is one consistent read of the display device.
type Snapshot struct {
	IsPresent   bool        `json:"isPresent"`
	Percentage  float64     `json:"percentage"`
	State       DeviceState `json:"state"`
	TimeToFull  int64       `json:"timeToFull"`
	TimeToEmpty int64       `json:"timeToEmpty"`
	IconName    string      `json:"iconName,omitempty"`
}

// Clamp returns a copy of s with the numeric fields forced into range.
// Upstream services can publish transient garbage while a device is
// being (re)enumerated.
func (s Snapshot) Clamp() Snapshot {
	switch {
	case math.IsNaN(s.Percentage), s.Percentage < 0:
		s.Percentage = 0
	case s.Percentage > 100:
		s.Percentage = 100
	}
	if s.TimeToFull < 0 {
		s.TimeToFull = 0
	}
	if s.TimeToEmpty < 0 {
		s.TimeToEmpty = 0
	}
	if int(s.State) >= len(deviceStates) {
		s.State = Unknown
	}
	return s
}

// Source supplies power snapshots and change notifications.
type Source interface {
	// Name identifies the backend in logs and API responses.
	Name() string
	// Snapshot reads the current device state.
	Snapshot(ctx context.Context) (Snapshot, error)
	// Watch returns a channel that receives a value whenever the device
	// state may have changed. The channel is closed when ctx is done or
	// the source is closed.
	Watch(ctx context.Context) (<-chan struct{}, error)
	Close() error
}
