package tarutil

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/berth-ci/berth-cmd/internal/ignorer"
)

var fileSeparatorString = string(filepath.Separator)

// Options alter which files are included in the tarball.
type Options struct {
	// Path is the directory to tar the contents of.
	Path string
	// Ignorer optionally excludes files from the tarball.
	Ignorer ignorer.Ignorer
}

// Dir will recursively tar the contents of an entire directory. Hidden files
// (files that start with a dot) are included. The name of the target directory
// is not included in the tarball, but instead only the children.
func Dir(w io.Writer, opts Options) error {
	rootDirPath, err := filepath.Abs(opts.Path)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(w)
	defer tw.Close()
	fileSys := os.DirFS(rootDirPath)
	return fs.WalkDir(fileSys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		absPath := filepath.Join(rootDirPath, path)
		info, err := os.Stat(absPath)
		if err != nil {
			return err
		}
		if opts.Ignorer != nil && opts.Ignorer.Ignore(absPath, path) {
			if info.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		name := path
		if d.IsDir() {
			name += fileSeparatorString
		}
		isFile := info.Mode().Type() == 0
		var size int64
		if isFile {
			size = info.Size()
		}
		if err := tw.WriteHeader(&tar.Header{
			Name:    name,
			Mode:    int64(info.Mode()),
			Size:    size,
			ModTime: info.ModTime(),
		}); err != nil {
			return err
		}
		if isFile {
			file, err := os.Open(absPath)
			if err != nil {
				return err
			}
			defer file.Close()
			if _, err := io.Copy(tw, file); err != nil {
				return err
			}
		}
		return nil
	})
}
