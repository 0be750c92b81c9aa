package state

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// BaseDir returns the default directory for persisted timetable and
// reminder state: the system user config dir + "/kmares".
func BaseDir() string {
	if d := strings.TrimSpace(userDataDir()); d != "" {
		return filepath.Join(d, "kmares")
	}
	// Never fall back to the working directory.
	panic("state.BaseDir: cannot determine system user config directory")
}

// ResolveDir returns dir when set, otherwise BaseDir.
func ResolveDir(dir string) string {
	if d := strings.TrimSpace(dir); d != "" {
		return filepath.Clean(d)
	}
	return BaseDir()
}

func userDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && strings.TrimSpace(d) != "" {
		return d
	}

	switch runtime.GOOS {
	case "windows":
		if d := strings.TrimSpace(os.Getenv("APPDATA")); d != "" {
			return d
		}
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, "AppData", "Roaming")
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, "Library", "Application Support")
		}
	default:
		if d := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); d != "" {
			return d
		}
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, ".config")
		}
	}

	return ""
}
