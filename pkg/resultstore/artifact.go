package resultstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

var fileNameArtifacts = "artifacts.json"

func (s *store) AddArtifact(jobID uint64, meta ArtifactMeta) (ArtifactMeta, error) {
	s.artifactMutex.Lock(jobID)
	defer s.artifactMutex.Unlock(jobID)
	listMeta, err := s.ListArtifacts(jobID)
	if err != nil {
		return ArtifactMeta{}, err
	}
	meta.ArtifactID = uint64(len(listMeta.Artifacts)) + 1
	listMeta.Artifacts = append(listMeta.Artifacts, meta)
	if err := s.writeArtifactListMeta(jobID, listMeta); err != nil {
		return ArtifactMeta{}, err
	}
	return meta, nil
}

func (s *store) ListArtifacts(jobID uint64) (ArtifactListMeta, error) {
	file, err := s.fs.OpenRead(s.resolveArtifactListMetaPath(jobID))
	if errors.Is(err, fs.ErrNotExist) {
		return ArtifactListMeta{}, nil
	}
	if err != nil {
		return ArtifactListMeta{}, fmt.Errorf("job %d: read artifacts.json: %w", jobID, err)
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	var listMeta ArtifactListMeta
	if err := decoder.Decode(&listMeta); err != nil {
		return ArtifactListMeta{}, fmt.Errorf("job %d: decode artifacts.json: %w", jobID, err)
	}
	return listMeta, nil
}

func (s *store) writeArtifactListMeta(jobID uint64, listMeta ArtifactListMeta) error {
	file, err := s.fs.OpenWrite(s.resolveArtifactListMetaPath(jobID))
	if err != nil {
		return fmt.Errorf("job %d: open artifacts.json for writing: %w", jobID, err)
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	if err := encoder.Encode(&listMeta); err != nil {
		return fmt.Errorf("job %d: encode artifacts.json: %w", jobID, err)
	}
	return nil
}

func (s *store) resolveArtifactListMetaPath(jobID uint64) string {
	return fmt.Sprintf("%s/%d/%s", dirNameJobs, jobID, fileNameArtifacts)
}
