package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charlie0129/battime/pkg/events"
	"github.com/charlie0129/battime/pkg/power"
)

// serveUnix serves h on a fresh unix socket and returns a client for it.
func serveUnix(t *testing.T, h http.Handler) *Client {
	t.Helper()

	// unix socket paths are length limited, keep it short
	dir, err := os.MkdirTemp("", "bt")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	sock := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return NewClient(sock)
}

func TestGetDisplay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/display", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"visible":true,"iconId":"battery-level-70-symbolic","label":"1:30","percentageLabel":"73 %"}`)
	})
	c := serveUnix(t, mux)

	d, err := c.GetDisplay()
	if err != nil {
		t.Fatalf("GetDisplay() error = %v", err)
	}
	if d.Label != "1:30" || d.IconID != "battery-level-70-symbolic" || !d.Visible {
		t.Errorf("GetDisplay() = %+v", d)
	}
}

func TestGetSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"isPresent":true,"percentage":45,"state":"charging","timeToFull":3661,"timeToEmpty":0,"iconName":""}`)
	})
	c := serveUnix(t, mux)

	s, err := c.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if s.State != power.Charging || s.TimeToFull != 3661 {
		t.Errorf("GetSnapshot() = %+v", s)
	}
}

func TestSendErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/locale", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `"language: tag is not well-formed"`)
	})
	c := serveUnix(t, mux)

	_, err := c.Get("/nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(/nope) error = %v, want ErrNotFound", err)
	}

	_, err = c.SetLocale("!!")
	if err == nil {
		t.Fatal("SetLocale(!!) error = nil, want error")
	}
	if want := "got 400: language: tag is not well-formed"; err.Error() != want {
		t.Errorf("SetLocale(!!) error = %q, want %q", err.Error(), want)
	}

	_, err = c.Send("DELETE", "/locale", "")
	if err == nil {
		t.Error("Send(DELETE) error = nil, want error")
	}
}

func TestDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := c.GetVersion()
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("GetVersion() error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestSetPercentSeparatorSendsJSON(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/percent-separator", func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 64)
		n, _ := r.Body.Read(b)
		got = string(b[:n])
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `"ok"`)
	})
	c := serveUnix(t, mux)

	msg, err := c.SetPercentSeparator("\u2009")
	if err != nil {
		t.Fatalf("SetPercentSeparator() error = %v", err)
	}
	if msg != "ok" {
		t.Errorf("SetPercentSeparator() = %q, want %q", msg, "ok")
	}
	if got != "\"\u2009\"" {
		t.Errorf("request body = %q, want %q", got, "\"\u2009\"")
	}
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keepalive",
		"",
		"event:display.changed",
		`data:{"display":{"label":"1:30"}}`,
		"",
		"event: source.error",
		`data: {"message":`,
		`data: "boom"}`,
		"",
		"data:orphan",
		"",
		"",
	}, "\n")

	var got []events.Event
	err := readEvents(strings.NewReader(stream), func(ev events.Event) bool {
		got = append(got, ev)
		return true
	})
	if err == nil {
		t.Error("readEvents() error = nil, want io.EOF at end of stream")
	}

	want := []events.Event{
		{Name: events.DisplayChanged, Data: []byte(`{"display":{"label":"1:30"}}`)},
		{Name: events.SourceError, Data: []byte("{\"message\":\n\"boom\"}")},
		{Name: "message", Data: []byte("orphan")},
	}
	if len(got) != len(want) {
		t.Fatalf("readEvents() got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || string(got[i].Data) != string(want[i].Data) {
			t.Errorf("event[%d] = {%s %s}, want {%s %s}", i, got[i].Name, got[i].Data, want[i].Name, want[i].Data)
		}
	}
}

func TestSubscribeEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:display.changed\ndata:{\"display\":{\"label\":\"1:30\"},\"ts\":1}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	c := serveUnix(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.SubscribeEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeEvents() error = %v", err)
	}

	select {
	case ev := <-ch:
		payload, err := events.DecodeAs[events.DisplayChangedEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs() error = %v", err)
		}
		if payload.Display.Label != "1:30" {
			t.Errorf("label = %q, want %q", payload.Display.Label, "1:30")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after cancel, want closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestReadEventsDropsUnterminatedEvent(t *testing.T) {
	var got []events.Event
	_ = readEvents(strings.NewReader("event:display.changed\ndata:{}\n"), func(ev events.Event) bool {
		got = append(got, ev)
		return true
	})
	if len(got) != 0 {
		t.Errorf("readEvents() got %d events for a stream cut mid-event, want 0", len(got))
	}
}
