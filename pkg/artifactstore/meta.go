package artifactstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const metaFileSuffix = ".json"
const tarballSuffix = ".tar.gz"

func metaPath(tarPath string) string {
	return strings.TrimSuffix(tarPath, tarballSuffix) + metaFileSuffix
}

func writeArtifactMeta(path string, artifact Artifact) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	return enc.Encode(&artifact)
}

func readArtifactMeta(path string) (Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer file.Close()
	dec := json.NewDecoder(file)
	var artifact Artifact
	if err := dec.Decode(&artifact); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}

func (s *store) List() ([]Artifact, error) {
	idDirs, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var artifacts []Artifact
	for _, idDir := range idDirs {
		if !idDir.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.dir, idDir.Name()))
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaFileSuffix) {
				continue
			}
			artifact, err := readArtifactMeta(filepath.Join(s.dir, idDir.Name(), entry.Name()))
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts, nil
}

func (s *store) Lookup(id, name string) (Artifact, bool, error) {
	path := filepath.Join(s.dir, id, name+metaFileSuffix)
	artifact, err := readArtifactMeta(path)
	if os.IsNotExist(err) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, err
	}
	return artifact, true, nil
}

func (s *store) Prune(now time.Time) ([]Artifact, error) {
	artifacts, err := s.List()
	if err != nil {
		return nil, err
	}
	var pruned []Artifact
	for _, artifact := range artifacts {
		if artifact.ExpiresAt == nil || now.Before(*artifact.ExpiresAt) {
			continue
		}
		if err := os.Remove(string(artifact.Tarball)); err != nil && !os.IsNotExist(err) {
			return pruned, err
		}
		if err := os.Remove(metaPath(string(artifact.Tarball))); err != nil && !os.IsNotExist(err) {
			return pruned, err
		}
		log.Info().
			WithString("id", artifact.ID).
			WithString("name", artifact.Name).
			Message("Pruned expired artifact.")
		pruned = append(pruned, artifact)
	}
	return pruned, nil
}
