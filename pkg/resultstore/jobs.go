package resultstore

import (
	"strconv"

	"gopkg.in/typ.v4/slices"
)

var dirNameJobs = "jobs"

func (s *store) ListJobIDs() ([]uint64, error) {
	entries, err := s.fs.ListDirEntries(dirNameJobs)
	if err != nil {
		return nil, err
	}
	jobIDs := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		jobID, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			// Not a job directory. Skip it.
			continue
		}
		jobIDs = append(jobIDs, jobID)
	}
	slices.Sort(jobIDs)
	return jobIDs, nil
}
