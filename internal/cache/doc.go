// Package cache persists resolved menu configurations per project under a
// per-user cache root, and decides when a stored entry is stale.
//
// Each entry is a directory holding project_config.json and cache_info.json.
// Files are written to a temporary name and renamed into place so concurrent
// readers never observe a partial file.
package cache
