package gui

import (
	"sync"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/indicator"
	"github.com/charlie0129/battime/pkg/presentation"
)

// tray owns the status icon and its menu. It must be created from the
// systray ready callback.
type tray struct {
	mu       sync.Mutex
	lastIcon string

	status  *systray.MenuItem
	charge  *systray.MenuItem
	icon    *systray.MenuItem
	refresh *systray.MenuItem
	quit    *systray.MenuItem
}

var (
	_ indicator.Sink      = &tray{}
	_ indicator.ErrorSink = &tray{}
)

func newTray() *tray {
	systray.SetTitle(titleLoading)
	systray.SetTooltip("battime")

	t := &tray{}

	t.status = systray.AddMenuItem("Status: Connecting...", "Remaining time estimate")
	t.status.Disable()

	t.charge = systray.AddMenuItem("Charge: -", "Current charge")
	t.charge.Disable()

	t.icon = systray.AddMenuItem("Icon: -", "Icon name reported for the current state")
	t.icon.Disable()

	systray.AddSeparator()
	t.refresh = systray.AddMenuItem("Refresh", "Read the power source again")

	systray.AddSeparator()
	t.quit = systray.AddMenuItem("Quit", quitTooltip)

	return t
}

// Apply renders a display state.
func (t *tray) Apply(d presentation.DisplayState) {
	t.render(displayView(d))
}

// SourceError keeps the last state on screen and notes the failure in the
// tooltip.
func (t *tray) SourceError(source string, err error) {
	systray.SetTooltip("battime: " + source + ": " + err.Error())
}

func (t *tray) render(v view) {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle(v.Title)
	systray.SetTooltip(v.Tooltip)
	t.status.SetTitle(v.Status)
	t.charge.SetTitle(v.Charge)
	t.icon.SetTitle(v.Icon)

	b, name, ok := lookupIcon(v.Icons...)
	if !ok {
		logrus.WithField("icons", v.Icons).Trace("no themed icon found")
		return
	}
	if name == t.lastIcon {
		return
	}
	t.lastIcon = name
	systray.SetIcon(b)
}

// handleClicks serves the menu until Quit is clicked.
func (t *tray) handleClicks(refresh func()) {
	for {
		select {
		case <-t.refresh.ClickedCh:
			refresh()
		case <-t.quit.ClickedCh:
			systray.Quit()
			return
		}
	}
}
