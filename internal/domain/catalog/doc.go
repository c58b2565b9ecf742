// Package catalog provides the read-only application catalog.
//
// The catalog is the set of launchable applications. Records come from
// disk (yaml, toml, or json files under the catalog directory) or from a
// remote catalog URL, and land in a Store whose snapshot is swapped
// atomically so readers never see a half-loaded set.
//
// Components:
//   - Store: snapshot holder with Get/List/Enabled lookups returning copies
//   - Loader: directory scan (doublestar glob) + per-extension decode
//   - Watcher: fsnotify hot reload with debounce
//   - Remote: periodic sync from a remote catalog URL
//
// Duplicate ids keep the first record seen and log a warning. Invalid
// records are skipped, never fatal: a broken file must not take the
// kiosk down.
//
// Example Usage:
//
//	store := catalog.NewStore()
//	loader := catalog.NewLoader(cfg.Catalog.Dir, logger)
//	apps, err := loader.Load(ctx)
//	store.Replace(apps)
package catalog
