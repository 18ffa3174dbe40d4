// Package artifactstore archives job artifacts into tarballs and keeps them
// until they expire. Which files to collect, what to name the tarball, and
// how long to keep it all come from the job's artifact rule in the manifest.
package artifactstore

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/berth-ci/berth-cmd/internal/filecopy"
	"github.com/berth-ci/berth-cmd/internal/ignorer"
	"github.com/berth-ci/berth-cmd/internal/tarutil"
	"github.com/berth-ci/berth-cmd/pkg/pipeyml"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"gopkg.in/typ.v4/sync2"
)

var log = logger.NewScoped("ARTIFACTS")

const dirFileMode fs.FileMode = 0775

// Errors specific to archiving artifacts.
var (
	ErrEmptyID   = errors.New("artifact ID cannot be empty")
	ErrNoMatches = errors.New("no artifact paths matched any files")
)

// Tarball is a path to a stored artifact tarball.
type Tarball string

// Open creates a file handle to the tarball.
func (t Tarball) Open() (io.ReadCloser, error) {
	return os.Open(string(t))
}

// Artifact is a stored artifact tarball with its retention metadata.
type Artifact struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Tarball   Tarball    `json:"tarball"`
	CreatedAt time.Time  `json:"createdAt"`
	// ExpiresAt is when the artifact is eligible for pruning. Nil means it
	// never expires.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Store archives and retains artifact tarballs.
type Store interface {
	// Archive collects the rule's paths from the source directory into a
	// gzipped tarball named after the rule, under the given ID. Archiving
	// the same ID and rule name twice yields the first tarball.
	Archive(id string, rule pipeyml.ArtifactRule, srcDir string, ign ignorer.Ignorer) (Artifact, error)
	// List lists all stored artifacts.
	List() ([]Artifact, error)
	// Lookup finds a stored artifact by ID and name.
	Lookup(id, name string) (Artifact, bool, error)
	// Prune removes all artifacts that have expired at the given time, and
	// returns the ones it removed.
	Prune(now time.Time) ([]Artifact, error)
}

// New creates a new Store rooted at the given directory, creating the
// directory if needed.
func New(dir string) (Store, error) {
	if err := os.MkdirAll(dir, dirFileMode); err != nil {
		return nil, err
	}
	return &store{dir: dir}, nil
}

type store struct {
	dir     string
	onceMap sync2.Map[string, *sync2.Once2[Artifact, error]]
}

func (s *store) Archive(id string, rule pipeyml.ArtifactRule, srcDir string, ign ignorer.Ignorer) (Artifact, error) {
	if id == "" {
		return Artifact{}, ErrEmptyID
	}
	key := id + "/" + rule.Name
	once, _ := s.onceMap.LoadOrStore(key, new(sync2.Once2[Artifact, error]))
	return once.Do(func() (Artifact, error) {
		return s.archive(id, rule, srcDir, ign)
	})
}

func (s *store) archive(id string, rule pipeyml.ArtifactRule, srcDir string, ign ignorer.Ignorer) (Artifact, error) {
	staging, err := os.MkdirTemp("", "berth-artifact-")
	if err != nil {
		return Artifact{}, err
	}
	defer os.RemoveAll(staging)

	var matchedAny bool
	for _, path := range rule.Paths {
		srcPath := filepath.Join(srcDir, path)
		info, err := os.Stat(srcPath)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().
				WithString("path", path).
				Message("Artifact path matched nothing. Skipping.")
			continue
		}
		if err != nil {
			return Artifact{}, err
		}
		matchedAny = true
		dstPath := filepath.Join(staging, path)
		if info.IsDir() {
			if mkdirErr := os.MkdirAll(dstPath, dirFileMode); mkdirErr != nil {
				return Artifact{}, mkdirErr
			}
			err = filecopy.CopyDirIgnorer(dstPath, srcPath, filecopy.IOCopier, ign)
		} else {
			if mkdirErr := os.MkdirAll(filepath.Dir(dstPath), dirFileMode); mkdirErr != nil {
				return Artifact{}, mkdirErr
			}
			err = filecopy.CopyFile(dstPath, srcPath, filecopy.IOCopier)
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("copy artifact path %q: %w", path, err)
		}
	}
	if !matchedAny {
		return Artifact{}, fmt.Errorf("%w: %v", ErrNoMatches, rule.Paths)
	}

	dstDir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dstDir, dirFileMode); err != nil {
		return Artifact{}, err
	}
	tarPath := filepath.Join(dstDir, rule.Name+".tar.gz")
	log.Info().
		WithString("path", tarPath).
		Message("Creating artifact tarball.")
	if err := writeTarball(tarPath, staging); err != nil {
		return Artifact{}, err
	}

	createdAt := time.Now()
	artifact := Artifact{
		ID:        id,
		Name:      rule.Name,
		Tarball:   Tarball(tarPath),
		CreatedAt: createdAt,
	}
	if deadline, ok := rule.ExpireIn.Deadline(createdAt); ok {
		artifact.ExpiresAt = &deadline
	}
	if err := writeArtifactMeta(metaPath(tarPath), artifact); err != nil {
		return Artifact{}, err
	}
	log.Debug().
		WithString("path", tarPath).
		WithStringer("expireIn", rule.ExpireIn).
		Message("Done creating artifact tarball.")
	return artifact, nil
}

func writeTarball(tarPath, srcDir string) error {
	tarFile, err := os.Create(tarPath)
	if err != nil {
		return err
	}
	defer tarFile.Close()
	gz := gzip.NewWriter(tarFile)
	if err := tarutil.Dir(gz, tarutil.Options{Path: srcDir}); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
