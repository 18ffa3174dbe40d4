package resultstore

import (
	"io"
	"io/fs"
	"os"
)

type nopWriteCloser struct {
	writer io.Writer
}

func (w nopWriteCloser) Write(p []byte) (n int, err error) {
	if w.writer == nil {
		return len(p), nil
	}
	return w.writer.Write(p)
}

func (nopWriteCloser) Close() error { return nil }

type mockFS struct {
	openAppend     func(name string) (io.WriteCloser, error)
	openWrite      func(name string) (io.WriteCloser, error)
	openRead       func(name string) (io.ReadCloser, error)
	listDirEntries func(name string) ([]fs.DirEntry, error)
}

func (m mockFS) OpenAppend(name string) (io.WriteCloser, error) {
	return m.openAppend(name)
}

func (m mockFS) OpenWrite(name string) (io.WriteCloser, error) {
	return m.openWrite(name)
}

func (m mockFS) OpenRead(name string) (io.ReadCloser, error) {
	if m.openRead == nil {
		return nil, os.ErrNotExist
	}
	return m.openRead(name)
}

func (m mockFS) ListDirEntries(name string) ([]fs.DirEntry, error) {
	if m.listDirEntries == nil {
		return nil, nil
	}
	return m.listDirEntries(name)
}

type mockDirEntry struct {
	name  func() string
	isDir func() bool
	typ   func() fs.FileMode
	info  func() (fs.FileInfo, error)
}

func (m mockDirEntry) Name() string {
	return m.name()
}

func (m mockDirEntry) IsDir() bool {
	return m.isDir()
}

func (m mockDirEntry) Type() fs.FileMode {
	return m.typ()
}

func (m mockDirEntry) Info() (fs.FileInfo, error) {
	return m.info()
}

func newMockDirEntryFile(name string) mockDirEntry {
	return mockDirEntry{
		name:  func() string { return name },
		isDir: func() bool { return false },
	}
}

func newMockDirEntryDir(name string) mockDirEntry {
	return mockDirEntry{
		name:  func() string { return name },
		isDir: func() bool { return true },
	}
}
