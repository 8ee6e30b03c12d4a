package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/version"
)

func parseStringArg(args []string, valueName string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one %s", valueName)
	}
	return args[0], nil
}

func getVersion() (clientVersion string, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// stateText colours a device state for the terminal.
func stateText(s power.DeviceState) string {
	switch s {
	case power.Charging, power.PendingCharge:
		return color.GreenString(s.String())
	case power.Discharging, power.PendingDischarge:
		return color.YellowString(s.String())
	case power.Empty:
		return color.RedString(s.String())
	case power.FullyCharged:
		return color.CyanString(s.String())
	default:
		return s.String()
	}
}

// secondsText renders a duration estimate, or "-" when there is none.
func secondsText(s int64) string {
	if s <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dh%02dm", s/3600, (s%3600)/60)
}
