package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root is the default state directory for kiosk deployments
const Root = "/var/lib/launcher"

// Root subdirectories
const (
	// Catalog contains application catalog files (yaml, toml, json)
	Catalog = Root + "/catalog"

	// Logs contains the rotating launcher log files
	Logs = Root + "/logs"

	// Cache contains probe results and other rebuildable data
	Cache = Root + "/cache"

	// Apps contains kiosk-provisioned application binaries
	Apps = Root + "/apps"
)

// DefaultAppDirs lists the directories searched when a catalog record names
// a bare executable instead of an absolute path.
func DefaultAppDirs() []string {
	return []string{
		Apps,
		"/usr/local/bin",
		"/usr/bin",
	}
}

// LogFile returns the primary log file path
func LogFile() string {
	return filepath.Join(Logs, "launcherd.log")
}

// CatalogFile returns the path of a named catalog file
func CatalogFile(name string) string {
	return filepath.Join(Catalog, name)
}

// Override returns base if set, falling back to the given default. Lets
// configuration relocate a directory while defaults stay here.
func Override(base, def string) string {
	if base != "" {
		return base
	}
	return def
}

// StandardDirectories returns all directories the daemon expects to exist
func StandardDirectories() []string {
	return []string{
		Catalog,
		Logs,
		Cache,
		Apps,
	}
}

// EnsureDir creates a directory if missing
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// ValidateAppID checks if an app ID is safe for path construction
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app ID cannot be empty")
	}
	if filepath.IsAbs(appID) {
		return fmt.Errorf("app ID cannot be an absolute path")
	}
	if filepath.Clean(appID) != appID {
		return fmt.Errorf("app ID contains invalid path components")
	}
	return nil
}
