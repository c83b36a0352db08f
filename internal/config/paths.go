package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir is the per-user directory name holding persisted client state.
const ConfigDir = "sekolahdrive"

// Directory returns the per-user config directory for the Drive client.
//
// Locations:
//   - Windows: %APPDATA%\SekolahDrive
//   - Unix: ~/.config/sekolahdrive
func Directory() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "sekolahdrive")
			}
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "SekolahDrive")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "sekolahdrive")
		}
		return filepath.Join(homeDir, ".config", ConfigDir)
	}
	return filepath.Join(configDir, ConfigDir)
}

// EnsureDirectory creates the config directory if it doesn't exist.
// Uses 0700 permissions since it holds the session token.
func EnsureDirectory(dir string) error {
	return os.MkdirAll(dir, 0700)
}

// TokenPath returns the path of the persisted bearer token within dir.
func TokenPath(dir string) string {
	return filepath.Join(dir, "token")
}

// UserPath returns the path of the persisted identity record within dir.
func UserPath(dir string) string {
	return filepath.Join(dir, "user.json")
}
