package resultstore

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is a filesystem with ability to open files in either append-only,
// write-only, or read only mode.
type FS interface {
	// OpenAppend creates or opens a file in append-only mode, meaning all
	// written data is appended to the end. Parent directories are created as
	// needed.
	OpenAppend(name string) (io.WriteCloser, error)
	// OpenWrite creates or opens a file in write-only mode, truncating any
	// existing content. Parent directories are created as needed.
	OpenWrite(name string) (io.WriteCloser, error)
	// OpenRead opens a file in read-only mode, reading data from the start
	// of the file.
	OpenRead(name string) (io.ReadCloser, error)
	// ListDirEntries lists all entries inside a directory, non-recursively.
	// A missing directory lists as empty.
	ListDirEntries(name string) ([]fs.DirEntry, error)
}

// NewFS creates a filesystem that will use the given directory as the base
// directory when creating or reading files.
func NewFS(dir string) FS {
	return osFS{dir: dir}
}

type osFS struct {
	dir string
}

func (f osFS) OpenAppend(name string) (io.WriteCloser, error) {
	path := filepath.Join(f.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
}

func (f osFS) OpenWrite(name string) (io.WriteCloser, error) {
	path := filepath.Join(f.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0644)
}

func (f osFS) OpenRead(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.dir, name))
}

func (f osFS) ListDirEntries(name string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return entries, err
}
