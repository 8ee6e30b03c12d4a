// Package indicator keeps presentation sinks in sync with a power source.
package indicator

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
)

// Sink renders display states. Apply is called from a single goroutine
// per Indicator, so implementations need no locking of their own unless
// they are shared.
type Sink interface {
	Apply(d presentation.DisplayState)
}

// ErrorSink is implemented by sinks that want to hear about failed reads.
// The display state they last received stays valid.
type ErrorSink interface {
	SourceError(source string, err error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(d presentation.DisplayState)

func (f SinkFunc) Apply(d presentation.DisplayState) { f(d) }

// Stats counts indicator activity since construction.
type Stats struct {
	Syncs     uint64    `json:"syncs"`
	Errors    uint64    `json:"errors"`
	LastSync  time.Time `json:"lastSync"`
	LastError string    `json:"lastError,omitempty"`
}

// Indicator reads snapshots from a source, derives display states and hands
// them to its sinks.
type Indicator struct {
	source power.Source
	sinks  []Sink

	// syncMu serialises read-derive-apply cycles.
	syncMu sync.Mutex

	mu       sync.RWMutex
	deriver  presentation.Deriver
	snapshot power.Snapshot
	display  presentation.DisplayState
	synced   bool
	stats    Stats
}

// New wires source, deriver and sinks. A nil deriver selects the default
// one.
func New(source power.Source, deriver presentation.Deriver, sinks ...Sink) *Indicator {
	if deriver == nil {
		deriver = presentation.NewDeriver(nil)
	}
	return &Indicator{
		source:  source,
		deriver: deriver,
		sinks:   sinks,
	}
}

// SourceName names the underlying power source.
func (i *Indicator) SourceName() string {
	return i.source.Name()
}

// Run syncs once, then again on every change notification, until ctx is
// done.
func (i *Indicator) Run(ctx context.Context) error {
	changes, err := i.source.Watch(ctx)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to watch %s", i.source.Name())
	}

	// The first read may fail (e.g. upowerd still starting); later change
	// notifications will retry.
	_, _ = i.Sync(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return pkgerrors.Errorf("%s stopped sending change notifications", i.source.Name())
			}
			_, _ = i.Sync(ctx)
		}
	}
}

// Sync performs one read-derive-apply cycle and returns the resulting
// display state. When the read fails the previous state is returned
// unchanged together with the error, and sinks are not touched.
func (i *Indicator) Sync(ctx context.Context) (presentation.DisplayState, error) {
	i.syncMu.Lock()
	defer i.syncMu.Unlock()

	s, err := i.source.Snapshot(ctx)
	if err != nil {
		i.recordError(err)
		d, _ := i.LastDisplay()
		return d, err
	}

	return i.apply(s), nil
}

// SetDeriver swaps the derivation strategy and re-applies the last good
// snapshot, if any.
func (i *Indicator) SetDeriver(d presentation.Deriver) {
	i.syncMu.Lock()
	defer i.syncMu.Unlock()

	i.mu.Lock()
	i.deriver = d
	s, synced := i.snapshot, i.synced
	i.mu.Unlock()

	if synced {
		i.apply(s)
	}
}

// LastDisplay returns the last derived state. ok is false before the first
// successful read.
func (i *Indicator) LastDisplay() (d presentation.DisplayState, ok bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.display, i.synced
}

// LastSnapshot returns the last successfully read snapshot.
func (i *Indicator) LastSnapshot() (s power.Snapshot, ok bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.snapshot, i.synced
}

func (i *Indicator) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stats
}

func (i *Indicator) apply(s power.Snapshot) presentation.DisplayState {
	i.mu.Lock()
	d := i.deriver.Derive(s)
	previous, wasSynced := i.display, i.synced
	i.snapshot = s
	i.display = d
	i.synced = true
	i.stats.Syncs++
	i.stats.LastSync = time.Now()
	i.stats.LastError = ""
	i.mu.Unlock()

	fields := logrus.Fields{
		"source":          i.source.Name(),
		"visible":         d.Visible,
		"icon":            d.IconID,
		"label":           d.Label,
		"percentageLabel": d.PercentageLabel,
		"state":           s.State.String(),
	}
	if wasSynced && previous == d {
		logrus.WithFields(fields).Trace("display unchanged")
	} else {
		logrus.WithFields(fields).Debug("display changed")
	}

	for _, sink := range i.sinks {
		sink.Apply(d)
	}
	return d
}

func (i *Indicator) recordError(err error) {
	i.mu.Lock()
	i.stats.Errors++
	i.stats.LastError = err.Error()
	i.mu.Unlock()

	logrus.WithField("source", i.source.Name()).Errorf("failed to read power snapshot: %v", err)

	for _, sink := range i.sinks {
		if es, ok := sink.(ErrorSink); ok {
			es.SourceError(i.source.Name(), err)
		}
	}
}
