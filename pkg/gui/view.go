package gui

import (
	"fmt"
	"strings"

	"github.com/charlie0129/battime/pkg/presentation"
)

// view is what the tray shows for one display state.
type view struct {
	Title   string
	Tooltip string
	Status  string
	Charge  string
	Icon    string
	// Icons lists icon names to try, best first.
	Icons []string
}

const (
	titleOffline = "Offline"
	titleLoading = "…"
)

func displayView(d presentation.DisplayState) view {
	if !d.Visible {
		return view{
			Title:   "",
			Tooltip: "No battery",
			Status:  "No battery",
			Charge:  "Charge: -",
			Icon:    "Icon: -",
			Icons:   []string{"battery-missing-symbolic"},
		}
	}

	icons := []string{d.IconID}
	if d.FallbackIconID != "" && d.FallbackIconID != d.IconID {
		icons = append(icons, d.FallbackIconID)
	}

	status := "Estimate: -"
	if d.Label != d.PercentageLabel {
		status = fmt.Sprintf("Estimate: %s", d.Label)
	}

	return view{
		Title:   d.Label,
		Tooltip: strings.TrimSpace(fmt.Sprintf("%s (%s)", d.PercentageLabel, d.IconID)),
		Status:  status,
		Charge:  fmt.Sprintf("Charge: %s", d.PercentageLabel),
		Icon:    fmt.Sprintf("Icon: %s", d.IconID),
		Icons:   icons,
	}
}

func offlineView(reason string) view {
	return view{
		Title:   titleOffline,
		Tooltip: fmt.Sprintf("battime daemon unreachable: %s", reason),
		Status:  "Status: Disconnected",
		Charge:  "Charge: -",
		Icon:    "Icon: -",
		Icons:   []string{"battery-missing-symbolic"},
	}
}
