package resultstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"
	"time"
)

// Status is an enum of the different statuses for a pipeline, stage, or job.
type Status byte

const (
	// StatusUnknown means no status has been set. This is an errornous
	// status.
	StatusUnknown Status = iota
	// StatusNone means no execution has been performed, such as a stage
	// with no jobs.
	StatusNone
	// StatusScheduling means the job is waiting on its services and has not
	// started running its commands yet.
	StatusScheduling
	// StatusRunning means the job's commands are running.
	StatusRunning
	// StatusSuccess means all commands exited with code 0.
	StatusSuccess
	// StatusFailed means a command exited with a non-zero code, or could not
	// be run at all.
	StatusFailed
	// StatusCancelled means the pipeline, stage, or job was cancelled.
	StatusCancelled
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusScheduling:
		return "Scheduling"
	case StatusRunning:
		return "Running"
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// ParseStatus parses a string as a status, or returns StatusUnknown if it
// cannot find a matching status value. This is the inverse of the
// Status.String() method.
func ParseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "none":
		return StatusNone
	case "scheduling":
		return StatusScheduling
	case "running":
		return StatusRunning
	case "success":
		return StatusSuccess
	case "failed":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	*s = ParseStatus(str)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

var fileNameStatus = "status.json"

func (s *store) AddStatusUpdate(jobID uint64, timestamp time.Time, newStatus Status) error {
	s.statusMutex.Lock(jobID)
	defer s.statusMutex.Unlock(jobID)
	list, err := s.ReadStatusUpdates(jobID)
	if err != nil {
		return err
	}
	if len(list.StatusUpdates) > 0 &&
		list.StatusUpdates[len(list.StatusUpdates)-1].Status == newStatus {
		return nil
	}
	statusUpdate := StatusUpdate{
		JobID:     jobID,
		UpdateID:  atomic.AddUint64(&s.lastStatusID, 1),
		Timestamp: timestamp,
		Status:    newStatus,
	}
	list.StatusUpdates = append(list.StatusUpdates, statusUpdate)
	if err := s.writeStatusUpdatesFile(jobID, list); err != nil {
		return err
	}
	s.pubStatusUpdate(statusUpdate)
	return nil
}

func (s *store) ReadStatusUpdates(jobID uint64) (StatusList, error) {
	file, err := s.fs.OpenRead(s.resolveStatusPath(jobID))
	if errors.Is(err, fs.ErrNotExist) {
		return StatusList{}, nil
	}
	if err != nil {
		return StatusList{}, fmt.Errorf("open status updates file for reading: %w", err)
	}
	defer file.Close()
	dec := json.NewDecoder(file)
	var list StatusList
	if err := dec.Decode(&list); err != nil {
		return StatusList{}, fmt.Errorf("decode status updates: %w", err)
	}
	return list, nil
}

func (s *store) writeStatusUpdatesFile(jobID uint64, list StatusList) error {
	file, err := s.fs.OpenWrite(s.resolveStatusPath(jobID))
	if err != nil {
		return fmt.Errorf("open status updates file for writing: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	if err := enc.Encode(&list); err != nil {
		return fmt.Errorf("encode status updates: %w", err)
	}
	return nil
}

func (s *store) resolveStatusPath(jobID uint64) string {
	return fmt.Sprintf("%s/%d/%s", dirNameJobs, jobID, fileNameStatus)
}

func (s *store) SubAllStatusUpdates(buffer int) (<-chan StatusUpdate, error) {
	s.statusSubMutex.Lock()
	defer s.statusSubMutex.Unlock()
	if s.frozen {
		return nil, ErrFrozen
	}
	existing, err := s.readAllStatusUpdates()
	if err != nil {
		return nil, err
	}
	ch := s.statusPubSub.SubBuf(buffer)
	s.statusSubs = append(s.statusSubs, ch)
	only := s.statusPubSub.WithOnly(ch)
	go func() {
		for _, update := range existing {
			only.PubSync(update)
		}
	}()
	return ch, nil
}

func (s *store) readAllStatusUpdates() ([]StatusUpdate, error) {
	jobIDs, err := s.ListJobIDs()
	if err != nil {
		return nil, err
	}
	var updates []StatusUpdate
	for _, jobID := range jobIDs {
		list, err := s.ReadStatusUpdates(jobID)
		if err != nil {
			return nil, err
		}
		updates = append(updates, list.StatusUpdates...)
	}
	return updates, nil
}

func (s *store) UnsubAllStatusUpdates(statusCh <-chan StatusUpdate) error {
	s.statusSubMutex.Lock()
	defer s.statusSubMutex.Unlock()
	for i, ch := range s.statusSubs {
		if ch == statusCh {
			s.statusSubs = append(s.statusSubs[:i], s.statusSubs[i+1:]...)
			break
		}
	}
	return s.statusPubSub.Unsub(statusCh)
}

func (s *store) pubStatusUpdate(statusUpdate StatusUpdate) {
	s.statusSubMutex.RLock()
	if !s.frozen {
		s.statusPubSub.PubSync(statusUpdate)
	}
	s.statusSubMutex.RUnlock()
}
