package daemon

import (
	"sync"
	"time"

	"github.com/charlie0129/battime/pkg/events"
	"github.com/charlie0129/battime/pkg/indicator"
	"github.com/charlie0129/battime/pkg/presentation"
)

// eventSink publishes display changes to stream subscribers. Identical
// consecutive states are published once.
type eventSink struct {
	hub *events.EventHub

	mu        sync.Mutex
	last      presentation.DisplayState
	published bool
}

var (
	_ indicator.Sink      = &eventSink{}
	_ indicator.ErrorSink = &eventSink{}
)

func newEventSink(hub *events.EventHub) *eventSink {
	return &eventSink{hub: hub}
}

func (s *eventSink) Apply(d presentation.DisplayState) {
	s.mu.Lock()
	if s.published && s.last == d {
		s.mu.Unlock()
		return
	}
	s.last, s.published = d, true
	s.mu.Unlock()

	s.hub.Publish(events.DisplayChanged, events.DisplayChangedEvent{
		Display: d,
		Ts:      time.Now().Unix(),
	})
}

func (s *eventSink) SourceError(source string, err error) {
	s.hub.Publish(events.SourceError, events.SourceErrorEvent{
		Source:  source,
		Message: err.Error(),
		Ts:      time.Now().Unix(),
	})
}
