//go:build windows

package core

import (
	"path/filepath"

	"golang.org/x/sys/windows"
)

// freeBytes returns the number of free bytes available on the volume
// containing path, best-effort (see diskspace_unix.go for the contract).
func freeBytes(path string) (uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	root := filepath.VolumeName(abs) + `\`

	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return 0, err
	}

	var freeAvail, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(rootPtr, &freeAvail, &total, &totalFree); err != nil {
		return 0, err
	}
	return freeAvail, nil
}
