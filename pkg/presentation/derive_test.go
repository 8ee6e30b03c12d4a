package presentation

import (
	"math"
	"testing"

	"github.com/charlie0129/battime/pkg/power"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		snapshot power.Snapshot
		want     DisplayState
	}{
		{
			name: "discharging with estimate",
			snapshot: power.Snapshot{
				IsPresent:   true,
				Percentage:  73,
				State:       power.Discharging,
				TimeToEmpty: 5400,
				IconName:    "battery-full-symbolic",
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-70-symbolic",
				FallbackIconID:  "battery-full-symbolic",
				Label:           "1:30",
				PercentageLabel: "73 %",
			},
		},
		{
			name: "fully charged",
			snapshot: power.Snapshot{
				IsPresent:  true,
				Percentage: 100,
				State:      power.FullyCharged,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          ChargedIcon,
				Label:           "100 %",
				PercentageLabel: "100 %",
			},
		},
		{
			name: "charging at 100 without estimate",
			snapshot: power.Snapshot{
				IsPresent:  true,
				Percentage: 100,
				State:      power.Charging,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          ChargedIcon,
				Label:           "100 %",
				PercentageLabel: "100 %",
			},
		},
		{
			name: "charging with estimate",
			snapshot: power.Snapshot{
				IsPresent:  true,
				Percentage: 45,
				State:      power.Charging,
				TimeToFull: 3661,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-40-charging-symbolic",
				Label:           "1:01",
				PercentageLabel: "45 %",
			},
		},
		{
			name: "not present",
			snapshot: power.Snapshot{
				IsPresent:   false,
				Percentage:  50,
				State:       power.Discharging,
				TimeToEmpty: 100,
			},
			want: DisplayState{Visible: false},
		},
		{
			name: "charging uses time to full, not time to empty",
			snapshot: power.Snapshot{
				IsPresent:   true,
				Percentage:  20,
				State:       power.Charging,
				TimeToEmpty: 7200,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-20-charging-symbolic",
				Label:           "20 %",
				PercentageLabel: "20 %",
			},
		},
		{
			name: "hours are not wrapped into days",
			snapshot: power.Snapshot{
				IsPresent:   true,
				Percentage:  99.9,
				State:       power.Discharging,
				TimeToEmpty: 30*3600 + 5*60 + 59,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-90-symbolic",
				Label:           "30:05",
				PercentageLabel: "99 %",
			},
		},
		{
			name: "thousands of hours are not grouped",
			snapshot: power.Snapshot{
				IsPresent:   true,
				Percentage:  50,
				State:       power.Discharging,
				TimeToEmpty: 1000*3600 + 60,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-50-symbolic",
				Label:           "1000:01",
				PercentageLabel: "50 %",
			},
		},
		{
			name: "out of range values are clamped",
			snapshot: power.Snapshot{
				IsPresent:   true,
				Percentage:  140,
				State:       power.Discharging,
				TimeToEmpty: -60,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-100-symbolic",
				Label:           "100 %",
				PercentageLabel: "100 %",
			},
		},
		{
			name: "pending charge is not charging",
			snapshot: power.Snapshot{
				IsPresent:  true,
				Percentage: 80,
				State:      power.PendingCharge,
				TimeToFull: 600,
			},
			want: DisplayState{
				Visible:         true,
				IconID:          "battery-level-80-symbolic",
				Label:           "80 %",
				PercentageLabel: "80 %",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.snapshot, nil); got != tt.want {
				t.Errorf("Derive() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	d := NewDeriver(nil)
	s := power.Snapshot{IsPresent: true, Percentage: 57.5, State: power.Discharging, TimeToEmpty: 4000}
	first := d.Derive(s)
	for i := 0; i < 5; i++ {
		if got := d.Derive(s); got != first {
			t.Fatalf("Derive() call %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestFillLevel(t *testing.T) {
	for p := 0.0; p <= 100; p += 0.25 {
		got := FillLevel(p)
		if got%10 != 0 || got < 0 || got > 100 {
			t.Fatalf("FillLevel(%v) = %d, not in {0,10,...,100}", p, got)
		}
		if float64(got) > p {
			t.Fatalf("FillLevel(%v) = %d, greater than percentage", p, got)
		}
	}

	edges := map[float64]int{
		-5:         0,
		math.NaN(): 0,
		9.99:       0,
		10:         10,
		99.99:      90,
		250:        100,
	}
	for in, want := range edges {
		if got := FillLevel(in); got != want {
			t.Errorf("FillLevel(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestIconName(t *testing.T) {
	tests := []struct {
		state power.DeviceState
		fill  int
		want  string
	}{
		{power.Discharging, 30, "battery-level-30-symbolic"},
		{power.Charging, 30, "battery-level-30-charging-symbolic"},
		{power.Charging, 100, ChargedIcon},
		{power.FullyCharged, 90, ChargedIcon},
		{power.Discharging, 100, "battery-level-100-symbolic"},
		{power.Empty, 0, "battery-level-0-symbolic"},
		{power.Unknown, 50, "battery-level-50-symbolic"},
	}
	for _, tt := range tests {
		if got := IconName(tt.state, tt.fill); got != tt.want {
			t.Errorf("IconName(%v, %d) = %q, want %q", tt.state, tt.fill, got, tt.want)
		}
	}
}
