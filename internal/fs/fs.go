package fs

import (
	"io"
	"os"
)

// File represents an open file.
type File interface {
	io.ReadWriteCloser
	Sync() error
}

// FileSystem abstracts the file operations used to load and store point
// catalogs.
type FileSystem interface {
	Open(name string) (File, error)
	Create(name string) (File, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) Open(name string) (File, error)       { return os.Open(name) }
func (LocalFS) Create(name string) (File, error)     { return os.Create(name) }
func (LocalFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (LocalFS) Remove(name string) error             { return os.Remove(name) }

// Default is the default local file system.
var Default FileSystem = LocalFS{}

// WriteAtomic writes a file through a temporary sibling and renames it into
// place once the content is synced. On failure the temporary file is removed
// and path is left untouched.
func WriteAtomic(fsys FileSystem, path string, write func(w io.Writer) error) (err error) {
	tmp := path + ".tmp"
	f, err := fsys.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}
