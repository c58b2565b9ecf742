// Package paths provides standardized filesystem paths.
//
// This package defines the canonical directory structure for the launcher
// daemon. Components take locations from configuration; configuration
// defaults come from these constants.
//
// # Directory Structure
//
//	/var/lib/launcher/
//	  ├── catalog/   (application catalog files)
//	  ├── apps/      (kiosk-provisioned binaries)
//	  ├── logs/      (rotating daemon logs)
//	  └── cache/     (probe results, rebuildable data)
//
// # Usage
//
//	import "github.com/SerVas333/WindowsLauncher-sub007/internal/shared/paths"
//
//	catalogDir := paths.Override(cfg.Catalog.Dir, paths.Catalog)
//	if err := paths.EnsureDir(catalogDir); err != nil { ... }
package paths
