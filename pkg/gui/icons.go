package gui

import (
	"os"
	"path/filepath"
)

// iconDirs are searched in order for symbolic status icons.
var iconDirs = func() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "icons"))
	}
	return append(dirs, "/usr/local/share/icons", "/usr/share/icons")
}()

var iconThemes = []string{"Adwaita", "hicolor"}

var iconSubdirs = []string{
	"symbolic/status",
	"scalable/status",
	"16x16/status",
	"24x24/status",
}

var iconExts = []string{".svg", ".png"}

// lookupIcon returns the file contents of the first icon name found in the
// installed themes, and the name it resolved to.
func lookupIcon(names ...string) ([]byte, string, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		for _, dir := range iconDirs {
			for _, theme := range iconThemes {
				for _, sub := range iconSubdirs {
					for _, ext := range iconExts {
						b, err := os.ReadFile(filepath.Join(dir, theme, sub, name+ext))
						if err == nil {
							return b, name, true
						}
					}
				}
			}
		}
	}
	return nil, "", false
}
