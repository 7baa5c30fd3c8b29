package table

import (
	"io"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/onecd-go/onecd/internal/object"
	"github.com/onecd-go/onecd/internal/onecderr"
	"github.com/onecd-go/onecd/internal/onecdlog"
	"github.com/onecd-go/onecd/internal/pagecache"
	"github.com/onecd-go/onecd/internal/vfs"
)

// rootManifest is the "root" header export/import agree on: per-stream
// version tuples and presence flags (spec.md §4.5 "Import/Export"),
// rendered as TOML for a human-inspectable export directory.
type rootManifest struct {
	Descr manifestStream `toml:"descr"`
	Data  manifestStream `toml:"data"`
	Blob  manifestStream `toml:"blob"`
	Index manifestStream `toml:"index"`
}

type manifestStream struct {
	Present     bool   `toml:"present"`
	CommittedV1 uint32 `toml:"committed_v1"`
	CommittedV2 uint32 `toml:"committed_v2"`
	Length      uint64 `toml:"length"`
}

func streamOf(o *object.Object) manifestStream {
	if o == nil {
		return manifestStream{}
	}
	v1, v2 := o.Version()
	return manifestStream{Present: true, CommittedV1: v1, CommittedV2: v2, Length: o.Len()}
}

// Export writes the four binary streams (descr, data, blob, index) plus a
// root manifest into dir (spec.md §4.5), staged through fs (a nil fs falls
// back to vfs.OS{}, the real filesystem). descriptorText is the rendered
// schema text for the descr stream.
func (t *Table) Export(dir string, descriptorText string, fs vfs.FS) error {
	fs = orOSFS(fs)
	if err := fs.MkdirAll(dir); err != nil {
		return onecderr.Wrap(onecderr.IoError, "table.Export", err)
	}
	if err := writeFile(fs, filepath.Join(dir, "descr"), []byte(descriptorText)); err != nil {
		return err
	}
	if err := saveObjectTo(fs, filepath.Join(dir, "data"), t.Data); err != nil {
		return err
	}
	if err := saveObjectTo(fs, filepath.Join(dir, "blob"), t.Blob); err != nil {
		return err
	}
	if err := saveObjectTo(fs, filepath.Join(dir, "index"), t.Index); err != nil {
		return err
	}
	manifest := rootManifest{
		Descr: manifestStream{Present: true, Length: uint64(len(descriptorText))},
		Data:  streamOf(t.Data),
		Blob:  streamOf(t.Blob),
		Index: streamOf(t.Index),
	}
	buf, err := toml.Marshal(manifest)
	if err != nil {
		return onecderr.Wrap(onecderr.IoError, "table.Export", err)
	}
	return writeFile(fs, filepath.Join(dir, "root"), buf)
}

func saveObjectTo(fs vfs.FS, path string, o *object.Object) error {
	f, err := fs.Create(path)
	if err != nil {
		return onecderr.Wrap(onecderr.IoError, "table.Export", err)
	}
	defer f.Close()
	return o.SaveTo(f)
}

func writeFile(fs vfs.FS, path string, data []byte) error {
	f, err := fs.Create(path)
	if err != nil {
		return onecderr.Wrap(onecderr.IoError, "table.writeFile", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return onecderr.Wrap(onecderr.IoError, "table.writeFile", err)
	}
	return nil
}

// Import reverses Export (spec.md §4.5): reads the four streams from dir
// (staged through fs, a nil fs falling back to vfs.OS{}), allocates three
// fresh objects sized to hold data/blob/index, writes their contents, and
// composes a new Descriptor (named from the exported descr stream) whose
// {"Files",...} clause references the freshly allocated roots. The
// descriptor is not yet attached to any database's root object; the
// caller (Database.ImportTable) does that once the roots are known to be
// free page numbers.
func Import(dir string, cache *pagecache.Cache, source object.PageSource, pageSize int, format object.Format, dataRoot, blobRoot, indexRoot uint32, log *onecdlog.Logger, fs vfs.FS) (*Table, string, error) {
	fs = orOSFS(fs)
	if !fs.Exists(dir) {
		return nil, "", onecderr.New(onecderr.IoError, "table.Import", onecderr.D("dir", dir))
	}
	descrBytes, err := readFile(fs, filepath.Join(dir, "descr"))
	if err != nil {
		return nil, "", onecderr.Wrap(onecderr.IoError, "table.Import", err)
	}
	desc, err := ParseDescriptor(string(descrBytes))
	if err != nil {
		return nil, "", err
	}
	desc.DataRoot, desc.BlobRoot, desc.IndexRoot = dataRoot, blobRoot, indexRoot

	t, err := Create(cache, source, pageSize, format, desc, log)
	if err != nil {
		return nil, "", err
	}
	if err := loadObjectFrom(fs, filepath.Join(dir, "data"), t.Data); err != nil {
		return nil, "", err
	}
	if err := loadObjectFrom(fs, filepath.Join(dir, "blob"), t.Blob); err != nil {
		return nil, "", err
	}
	if err := loadObjectFrom(fs, filepath.Join(dir, "index"), t.Index); err != nil {
		return nil, "", err
	}
	return t, desc.Render(), nil
}

func loadObjectFrom(fs vfs.FS, path string, o *object.Object) error {
	data, err := readFile(fs, path)
	if err != nil {
		return onecderr.Wrap(onecderr.IoError, "table.Import", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := o.Resize(uint64(len(data))); err != nil {
		return err
	}
	return o.Write(0, data)
}

func readFile(fs vfs.FS, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// orOSFS returns fs unchanged unless it is nil, in which case it returns
// the real filesystem.
func orOSFS(fs vfs.FS) vfs.FS {
	if fs == nil {
		return vfs.OS{}
	}
	return fs
}
