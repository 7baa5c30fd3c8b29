//go:build unix

package blockdevice

import (
	"os"
	"syscall"

	"github.com/pkg/errors"

	"github.com/onecd-go/onecd/internal/onecderr"
)

func lockFile(f *os.File, mode Mode) error {
	how := syscall.LOCK_SH | syscall.LOCK_NB
	if mode == ReadWriteExclusive {
		how = syscall.LOCK_EX | syscall.LOCK_NB
	}
	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return onecderr.Wrap(onecderr.Unavailable, "blockdevice.lockFile", errors.WithStack(err))
	}
	return nil
}

func unlockFile(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
