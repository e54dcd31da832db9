//go:build !windows

package backend

import "github.com/manpen/foxxll/internal/engine"

// OpenWincallFile is unavailable outside Windows; ReadFile/WriteFile are
// Win32 APIs with no POSIX equivalent worth emulating here.
func OpenWincallFile(queueID int, deviceID uint32, path string, flags engine.OpenFlags) (engine.File, error) {
	return nil, engine.NewError("OpenWincallFile", engine.KindConfiguration, "wincall backend requires windows")
}
