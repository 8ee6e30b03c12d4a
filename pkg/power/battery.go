package power

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often the Battery source rereads the kernel
// battery interface when nothing else is configured.
const DefaultPollInterval = 10 * time.Second

var _ Source = &Battery{}

// Battery aggregates every battery reported by the OS into a single
// snapshot, the way upowerd builds its DisplayDevice. It has no change
// notifications, so Watch polls.
type Battery struct {
	interval time.Duration
	getAll   func() ([]*battery.Battery, error)

	mu     sync.Mutex
	last   Snapshot
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewBattery returns a polling source. A non-positive interval selects
// DefaultPollInterval.
func NewBattery(interval time.Duration) *Battery {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Battery{
		interval: interval,
		getAll:   battery.GetAll,
		stopCh:   make(chan struct{}),
	}
}

func (b *Battery) Name() string {
	return "battery"
}

func (b *Battery) Snapshot(_ context.Context) (Snapshot, error) {
	batteries, err := b.getAll()

	usable := make([]*battery.Battery, 0, len(batteries))
	for _, bat := range batteries {
		if bat != nil {
			usable = append(usable, bat)
		}
	}

	if err != nil {
		if len(usable) == 0 {
			return Snapshot{}, pkgerrors.Wrapf(err, "failed to read batteries")
		}
		// Partial reads are common on multi-battery laptops while one pack
		// is being re-enumerated.
		logrus.Debugf("partial battery read: %v", err)
	}

	return aggregateBatteries(usable), nil
}

func (b *Battery) Watch(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				s, err := b.Snapshot(ctx)
				if err != nil {
					// Let the consumer observe the failure on its own read.
					b.notify(out)
					continue
				}
				if b.changed(s) {
					b.notify(out)
				}
			}
		}
	}()

	return out, nil
}

func (b *Battery) Close() error {
	b.mu.Lock()
	select {
	case <-b.stopCh:
	default:
		close(b.stopCh)
	}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

func (b *Battery) changed(s Snapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == b.last {
		return false
	}
	b.last = s
	return true
}

func (b *Battery) notify(out chan<- struct{}) {
	select {
	case out <- struct{}{}:
	default:
	}
}

// packReading is the part of a battery readout the aggregation needs.
type packReading struct {
	state   DeviceState
	current float64 // mWh
	full    float64 // mWh
	rate    float64 // mW, unsigned
}

func aggregateBatteries(batteries []*battery.Battery) Snapshot {
	packs := make([]packReading, 0, len(batteries))
	for _, bat := range batteries {
		packs = append(packs, packReading{
			state:   deviceStateFromBattery(bat.State.String()),
			current: bat.Current,
			full:    bat.Full,
			rate:    math.Abs(bat.ChargeRate),
		})
	}
	return aggregate(packs)
}

// aggregate folds several packs into one device: energies and rates are
// summed, the state is the most "active" one.
func aggregate(packs []packReading) Snapshot {
	if len(packs) == 0 {
		return Snapshot{IsPresent: false}
	}

	var (
		current, full, rate                  float64
		anyCharging, anyDischarging, anyIdle bool
		allFull, allEmpty                    = true, true
	)

	for _, p := range packs {
		current += p.current
		full += p.full
		rate += p.rate

		switch p.state {
		case Charging:
			anyCharging = true
		case Discharging:
			anyDischarging = true
		case PendingCharge:
			anyIdle = true
		}
		if p.state != FullyCharged {
			allFull = false
		}
		if p.state != Empty {
			allEmpty = false
		}
	}

	s := Snapshot{IsPresent: true}
	if full > 0 {
		s.Percentage = current * 100 / full
	}

	switch {
	case anyCharging:
		s.State = Charging
	case anyDischarging:
		s.State = Discharging
	case allFull:
		s.State = FullyCharged
	case allEmpty:
		s.State = Empty
	case anyIdle:
		s.State = PendingCharge
	default:
		s.State = Unknown
	}

	if rate > 0 {
		switch s.State {
		case Charging:
			s.TimeToFull = int64(math.Max(full-current, 0) / rate * 3600)
		case Discharging:
			s.TimeToEmpty = int64(current / rate * 3600)
		}
	}

	s = s.Clamp()
	s.IconName = legacyIconName(s)
	return s
}

func deviceStateFromBattery(name string) DeviceState {
	switch name {
	case "Charging":
		return Charging
	case "Discharging":
		return Discharging
	case "Full":
		return FullyCharged
	case "Empty":
		return Empty
	case "Idle", "Not charging":
		// Plugged in but held below full, which upowerd reports as
		// pending-charge.
		return PendingCharge
	default:
		return Unknown
	}
}

// legacyIconName mimics the coarse icon names upowerd publishes in the
// IconName property, used by sinks when the level icons are missing.
func legacyIconName(s Snapshot) string {
	if !s.IsPresent {
		return "battery-missing-symbolic"
	}
	if s.State == FullyCharged {
		return "battery-full-charged-symbolic"
	}

	var level string
	switch {
	case s.Percentage < 10:
		level = "caution"
	case s.Percentage < 30:
		level = "low"
	case s.Percentage < 60:
		level = "good"
	default:
		level = "full"
	}

	if s.State == Charging || s.State == PendingCharge {
		return "battery-" + level + "-charging-symbolic"
	}
	return "battery-" + level + "-symbolic"
}
