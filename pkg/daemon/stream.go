package daemon

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/events"
)

const (
	sseKeepAlive = 30 * time.Second

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12
)

// wsEnvelope frames every websocket message. Type carries the event name.
type wsEnvelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// The daemon only listens on a unix socket and an optional metrics address,
// so browsers never reach /ws cross-origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// currentDisplayEvent builds a display.changed event for the last derived
// state, so new subscribers do not wait for the next change.
func currentDisplayEvent() (events.Event, bool) {
	d, ok := ind.LastDisplay()
	if !ok {
		return events.Event{}, false
	}
	b, err := json.Marshal(events.DisplayChangedEvent{Display: d, Ts: time.Now().Unix()})
	if err != nil {
		return events.Event{}, false
	}
	return events.Event{Name: events.DisplayChanged, Data: b}, true
}

func streamEvents(c *gin.Context) {
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if ev, ok := currentDisplayEvent(); ok {
		c.SSEvent(ev.Name, string(ev.Data))
		c.Writer.Flush()
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	logrus.WithField("remote", c.Request.RemoteAddr).Debug("event stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		}
	})

	logrus.Debug("event stream closed")
}

func streamWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients never send anything meaningful. Reading drives the pong
	// handler and tells us when the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if ev, ok := currentDisplayEvent(); ok {
		if err := writeEnvelope(conn, wsEnvelope{Type: ev.Name, Data: ev.Data}); err != nil {
			logrus.WithError(err).Debug("websocket initial write failed")
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeEnvelope(conn, wsEnvelope{Type: ev.Name, Data: ev.Data}); err != nil {
				logrus.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithError(err).Debug("websocket ping failed")
				return
			}
		}
	}
}

func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
