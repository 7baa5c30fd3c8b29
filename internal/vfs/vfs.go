// Package vfs is the path/filesystem collaborator (spec.md §6): the
// handful of host filesystem operations the core needs for import/export
// job staging, kept behind an interface so callers can swap in an
// in-memory implementation for tests.
package vfs

import (
	"io"
	"os"

	"github.com/onecd-go/onecd/internal/onecderr"
)

// FS is the collaborator interface the core consumes: exactly the
// operations table.Export/table.Import drive.
type FS interface {
	Create(path string) (io.WriteCloser, error)
	Open(path string) (io.ReadCloser, error)
	MkdirAll(path string) error
	Exists(path string) bool
}

// OS is the default FS backed by the real filesystem.
type OS struct{}

func (OS) Create(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.IoError, "vfs.Create", err, onecderr.D("path", path))
	}
	return f, nil
}

func (OS) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, onecderr.Wrap(onecderr.IoError, "vfs.Open", err, onecderr.D("path", path))
	}
	return f, nil
}

func (OS) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return onecderr.Wrap(onecderr.IoError, "vfs.MkdirAll", err, onecderr.D("path", path))
	}
	return nil
}

func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
