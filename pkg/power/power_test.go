package power

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/distatus/battery"
	"github.com/godbus/dbus/v5"
)

func TestSnapshotClamp(t *testing.T) {
	tests := []struct {
		name string
		in   Snapshot
		want Snapshot
	}{
		{
			name: "in range is untouched",
			in:   Snapshot{IsPresent: true, Percentage: 42.5, State: Charging, TimeToFull: 10},
			want: Snapshot{IsPresent: true, Percentage: 42.5, State: Charging, TimeToFull: 10},
		},
		{
			name: "negative values",
			in:   Snapshot{Percentage: -1, TimeToFull: -5, TimeToEmpty: -6},
			want: Snapshot{},
		},
		{
			name: "percentage above 100",
			in:   Snapshot{Percentage: 100.5},
			want: Snapshot{Percentage: 100},
		},
		{
			name: "NaN percentage",
			in:   Snapshot{Percentage: math.NaN()},
			want: Snapshot{},
		},
		{
			name: "unknown state value",
			in:   Snapshot{State: DeviceState(42)},
			want: Snapshot{State: Unknown},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeviceStateText(t *testing.T) {
	for s := Unknown; s <= PendingDischarge; s++ {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) error = %v", s, err)
		}
		var got DeviceState
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", b, err)
		}
		if got != s {
			t.Errorf("state %d round-tripped as %d", s, got)
		}
	}

	if _, err := ParseDeviceState("exploding"); err == nil {
		t.Errorf("ParseDeviceState() expected error")
	}
	if got := DeviceState(99).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}

func TestSnapshotFromProperties(t *testing.T) {
	props := map[string]dbus.Variant{
		"IsPresent":   dbus.MakeVariant(true),
		"Percentage":  dbus.MakeVariant(73.0),
		"State":       dbus.MakeVariant(uint32(2)),
		"TimeToFull":  dbus.MakeVariant(int64(0)),
		"TimeToEmpty": dbus.MakeVariant(int64(5400)),
		"IconName":    dbus.MakeVariant("battery-good-symbolic"),
		"Energy":      dbus.MakeVariant(40.1),
	}
	want := Snapshot{
		IsPresent:   true,
		Percentage:  73,
		State:       Discharging,
		TimeToEmpty: 5400,
		IconName:    "battery-good-symbolic",
	}
	if got := snapshotFromProperties(props); got != want {
		t.Errorf("snapshotFromProperties() = %+v, want %+v", got, want)
	}

	// Mistyped properties read as zero values instead of panicking.
	props["Percentage"] = dbus.MakeVariant("73")
	props["State"] = dbus.MakeVariant(int32(1))
	got := snapshotFromProperties(props)
	if got.Percentage != 0 || got.State != Unknown {
		t.Errorf("snapshotFromProperties() with bad types = %+v", got)
	}
}

func TestIsDisplayDeviceChange(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
		want bool
	}{
		{
			name: "device properties changed",
			sig: &dbus.Signal{
				Path: displayDevicePath,
				Name: propertiesChangedFq,
				Body: []interface{}{upowerDeviceIface, map[string]dbus.Variant{}, []string{}},
			},
			want: true,
		},
		{
			name: "other interface",
			sig: &dbus.Signal{
				Path: displayDevicePath,
				Name: propertiesChangedFq,
				Body: []interface{}{"org.freedesktop.UPower.KbdBacklight"},
			},
			want: false,
		},
		{
			name: "other path",
			sig: &dbus.Signal{
				Path: "/org/freedesktop/UPower/devices/battery_BAT0",
				Name: propertiesChangedFq,
			},
			want: false,
		},
		{
			name: "nil",
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDisplayDeviceChange(tt.sig); got != tt.want {
				t.Errorf("isDisplayDeviceChange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		packs []packReading
		want  Snapshot
	}{
		{
			name:  "no batteries",
			packs: nil,
			want:  Snapshot{IsPresent: false},
		},
		{
			name: "single discharging pack",
			packs: []packReading{
				{state: Discharging, current: 30000, full: 60000, rate: 10000},
			},
			want: Snapshot{
				IsPresent:   true,
				Percentage:  50,
				State:       Discharging,
				TimeToEmpty: 3 * 3600,
				IconName:    "battery-good-symbolic",
			},
		},
		{
			name: "one charging pack wins",
			packs: []packReading{
				{state: FullyCharged, current: 50000, full: 50000},
				{state: Charging, current: 10000, full: 50000, rate: 20000},
			},
			want: Snapshot{
				IsPresent:  true,
				Percentage: 60,
				State:      Charging,
				TimeToFull: 7200,
				IconName:   "battery-full-charging-symbolic",
			},
		},
		{
			name: "all full",
			packs: []packReading{
				{state: FullyCharged, current: 50000, full: 50000},
				{state: FullyCharged, current: 40000, full: 40000},
			},
			want: Snapshot{
				IsPresent:  true,
				Percentage: 100,
				State:      FullyCharged,
				IconName:   "battery-full-charged-symbolic",
			},
		},
		{
			name: "idle pack",
			packs: []packReading{
				{state: PendingCharge, current: 4000, full: 50000},
			},
			want: Snapshot{
				IsPresent:  true,
				Percentage: 8,
				State:      PendingCharge,
				IconName:   "battery-caution-charging-symbolic",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aggregate(tt.packs); got != tt.want {
				t.Errorf("aggregate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeviceStateFromBattery(t *testing.T) {
	tests := map[string]DeviceState{
		"Charging":     Charging,
		"Discharging":  Discharging,
		"Full":         FullyCharged,
		"Empty":        Empty,
		"Idle":         PendingCharge,
		"Not charging": PendingCharge,
		"Unknown":      Unknown,
		"Undefined":    Unknown,
	}
	for in, want := range tests {
		if got := deviceStateFromBattery(in); got != want {
			t.Errorf("deviceStateFromBattery(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBatterySnapshotErrors(t *testing.T) {
	b := NewBattery(time.Second)

	b.getAll = func() ([]*battery.Battery, error) {
		return nil, nil
	}
	s, err := b.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if s.IsPresent {
		t.Errorf("Snapshot().IsPresent = true with no batteries")
	}

	b.getAll = func() ([]*battery.Battery, error) {
		return nil, errors.New("boom")
	}
	if _, err := b.Snapshot(context.Background()); err == nil {
		t.Errorf("Snapshot() expected error")
	}

	b.getAll = func() ([]*battery.Battery, error) {
		return []*battery.Battery{nil, {Current: 25, Full: 100}}, errors.New("partial")
	}
	s, err = b.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() partial error = %v", err)
	}
	if !s.IsPresent || s.Percentage != 25 {
		t.Errorf("Snapshot() partial = %+v", s)
	}
}

func TestBatteryWatchNotifiesOnChange(t *testing.T) {
	b := NewBattery(5 * time.Millisecond)
	var current atomic.Int64
	current.Store(50)
	b.getAll = func() ([]*battery.Battery, error) {
		return []*battery.Battery{{Current: float64(current.Load()), Full: 100}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// The first poll always differs from the zero snapshot.
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no initial notification")
	}

	current.Store(49)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no notification after change")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for range ch {
		// drain until closed
	}
}

func TestOpenUnknownSource(t *testing.T) {
	_, err := Open(context.Background(), "carrier-pigeon", 0)
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Open() error = %v, want ErrUnknownSource", err)
	}

	src, err := Open(context.Background(), SourceBattery, 0)
	if err != nil {
		t.Fatalf("Open(battery) error = %v", err)
	}
	defer src.Close()
	if src.Name() != SourceBattery {
		t.Errorf("Name() = %q, want %q", src.Name(), SourceBattery)
	}
}
