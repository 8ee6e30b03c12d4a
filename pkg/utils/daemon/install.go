package daemon

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitName = "battime.service"

//go:embed battime.service
var unitTemplate string

// UnitPath is where the systemd user unit is written.
func UnitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find user config dir: %w", err)
	}
	return filepath.Join(dir, "systemd", "user", unitName), nil
}

// RenderUnit fills the unit template for the given binary and paths.
func RenderUnit(exePath, configPath, socketPath string) string {
	unit := strings.ReplaceAll(unitTemplate, "/path/to/battime", exePath)
	unit = strings.ReplaceAll(unit, "@CONFIG@", configPath)
	unit = strings.ReplaceAll(unit, "@SOCKET@", socketPath)
	return unit
}

func systemctl(args ...string) error {
	args = append([]string{"--user"}, args...)
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func Install(configPath, socketPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}

	logrus.Infof("writing systemd user unit to %s", unitPath)

	err = os.MkdirAll(filepath.Dir(unitPath), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	err = os.WriteFile(unitPath, []byte(RenderUnit(exePath, configPath, socketPath)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Infof("starting battime")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}

func Uninstall() error {
	logrus.Infof("stopping battime")

	if err := systemctl("disable", "--now", unitName); err != nil {
		return err
	}

	logrus.Infof("removing systemd user unit")

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}

	// if the file doesn't exist, we don't need to remove it
	_, err = os.Stat(unitPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", unitPath, err)
	}

	err = os.Remove(unitPath)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", unitPath, err)
	}

	return systemctl("daemon-reload")
}
