//go:build !unix

package blockdevice

import "os"

// Non-Unix platforms (Windows) get no advisory lock here; the caller is
// still expected to hold the file exclusively at the OS level via
// sharing flags, which os.OpenFile does not expose portably. Best-effort
// only, matching spec.md's "platform lock" being an external concern.
func lockFile(f *os.File, mode Mode) error { return nil }
func unlockFile(f *os.File)                {}
