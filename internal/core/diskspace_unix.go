//go:build linux || darwin

package core

import "golang.org/x/sys/unix"

// freeBytes returns the number of free bytes available on the filesystem
// containing path, best-effort. A non-nil error means the probe itself
// failed (e.g. path doesn't exist yet) — callers treat that as "unknown",
// never as a fatal condition (spec §9: this is a diagnostic, not a
// correctness concern).
func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
