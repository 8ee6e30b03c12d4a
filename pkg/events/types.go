package events

import (
	"encoding/json"

	"github.com/charlie0129/battime/pkg/presentation"
)

// Event name constants
const (
	DisplayChanged = "display.changed"
	SourceError    = "source.error"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// DisplayChangedEvent is the typed payload for display.changed.
type DisplayChangedEvent struct {
	Display presentation.DisplayState `json:"display"`
	Ts      int64                     `json:"ts"`
}

// SourceErrorEvent is the typed payload for source.error.
type SourceErrorEvent struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Ts      int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.DisplayChangedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Display.Label)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
