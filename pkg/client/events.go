package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/events"
)

// SubscribeEvents opens the daemon's event stream. The returned channel
// is closed when ctx is done or the daemon ends the stream.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/events", "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: GET /events", ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("got %d subscribing to events", resp.StatusCode)
	}

	ch := make(chan events.Event, 16)
	go func() {
		defer close(ch)
		defer func() { _ = resp.Body.Close() }()

		err := readEvents(resp.Body, func(ev events.Event) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.WithError(err).Debug("event stream ended")
		}
	}()

	return ch, nil
}

// readEvents parses a text/event-stream body and calls emit for every
// complete event until emit returns false or the body ends. Comment lines
// (keepalives) and unknown fields are skipped.
func readEvents(r io.Reader, emit func(events.Event) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var name string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 {
				if name == "" {
					name = "message"
				}
				ev := events.Event{Name: name, Data: []byte(strings.Join(data, "\n"))}
				if !emit(ev) {
					return nil
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
