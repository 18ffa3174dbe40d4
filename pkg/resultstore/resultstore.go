// Package resultstore stores the results of a pipeline run on disk: per-job
// log files with timestamped lines, status update lists, and artifact
// metadata. Readers can subscribe to log lines and status updates as they
// come in, which is what feeds the results REST API during a run.
package resultstore

import (
	"io"
	"sync"
	"time"

	"gopkg.in/typ.v4/chans"
	"gopkg.in/typ.v4/sync2"
)

// LogLine is a single log line from a job, parsed from the line's format of
// a RFC-3339 timestamp followed by the message.
type LogLine struct {
	JobID     uint64    `json:"jobId"`
	LogID     uint64    `json:"logId"`
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusList is a list of status updates for a job, in the order they
// occurred.
type StatusList struct {
	StatusUpdates []StatusUpdate `json:"statusUpdates"`
}

// StatusUpdate is a single status change of a job.
type StatusUpdate struct {
	JobID     uint64    `json:"jobId"`
	UpdateID  uint64    `json:"updateId"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// ArtifactListMeta is the list of artifacts a job produced.
type ArtifactListMeta struct {
	Artifacts []ArtifactMeta `json:"artifacts"`
}

// ArtifactMeta is the metadata of a single stored artifact tarball.
type ArtifactMeta struct {
	ArtifactID uint64 `json:"artifactId"`
	Name       string `json:"name"`
	Path       string `json:"path"`

	// ExpiresAt is when the artifact is eligible for pruning. Nil means the
	// artifact never expires.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Store is the interface for storing pipeline run results and reading them
// back.
type Store interface {
	// OpenLogWriter opens the log file of a job for writing. Only a single
	// writer per job may be open at a time.
	OpenLogWriter(jobID uint64) (LogLineWriteCloser, error)
	// OpenLogReader opens the log file of a job for reading from the start.
	OpenLogReader(jobID uint64) (LogLineReadCloser, error)
	// ReadAllLogLines reads all stored log lines of a job.
	ReadAllLogLines(jobID uint64) ([]LogLine, error)

	// AddStatusUpdate appends a status update to a job's status list, unless
	// the new status equals the job's latest status.
	AddStatusUpdate(jobID uint64, timestamp time.Time, newStatus Status) error
	// ReadStatusUpdates reads all stored status updates of a job.
	ReadStatusUpdates(jobID uint64) (StatusList, error)

	// AddArtifact appends artifact metadata to a job's artifact list,
	// assigning it an artifact ID unique within the job.
	AddArtifact(jobID uint64, meta ArtifactMeta) (ArtifactMeta, error)
	// ListArtifacts reads the artifact metadata of a job.
	ListArtifacts(jobID uint64) (ArtifactListMeta, error)

	// ListJobIDs lists the IDs of all jobs that have results stored, in
	// ascending order.
	ListJobIDs() ([]uint64, error)

	// SubAllLogLines subscribes to all job log lines, existing lines
	// included. The channel is closed on unsubscribe or Freeze.
	SubAllLogLines(buffer int) (<-chan LogLine, error)
	// UnsubAllLogLines unsubscribes a channel created by SubAllLogLines.
	UnsubAllLogLines(ch <-chan LogLine) error

	// SubAllStatusUpdates subscribes to all job status updates, existing
	// updates included. The channel is closed on unsubscribe or Freeze.
	SubAllStatusUpdates(buffer int) (<-chan StatusUpdate, error)
	// UnsubAllStatusUpdates unsubscribes a channel created by
	// SubAllStatusUpdates.
	UnsubAllStatusUpdates(ch <-chan StatusUpdate) error

	// Freeze marks the end of the run, closing all subscriptions. Any writes
	// after freezing are still stored, but no longer published.
	Freeze()
}

// LogLineWriteCloser writes log lines to a job's log file, timestamping each
// line as it is written.
type LogLineWriteCloser interface {
	io.Closer
	WriteLogLine(line string) error
}

// LogLineReadCloser reads back log lines from a job's log file.
type LogLineReadCloser interface {
	io.Closer
	// ReadLogLine reads the next log line, or io.EOF when the file is
	// exhausted.
	ReadLogLine() (LogLine, error)
	// ReadLastLogLine reads all remaining lines and returns the last one, or
	// io.EOF if there were none remaining.
	ReadLastLogLine() (LogLine, error)
}

// NewStore creates a store backed by the given filesystem.
func NewStore(fs FS) Store {
	return &store{
		fs:           fs,
		logPubSub:    &chans.PubSub[LogLine]{},
		statusPubSub: &chans.PubSub[StatusUpdate]{},
	}
}

type store struct {
	fs           FS
	lastStatusID uint64

	statusMutex   keyedMutex[uint64]
	artifactMutex keyedMutex[uint64]

	logFilesOpened sync2.Map[uint64, struct{}]

	// logSubMutex guards the pubsub, the sub list, and the frozen flag, so a
	// new subscription never misses lines published while it is catching up
	// on existing ones.
	logSubMutex sync.RWMutex
	logPubSub   *chans.PubSub[LogLine]
	logSubs     []<-chan LogLine

	statusSubMutex sync.RWMutex
	statusPubSub   *chans.PubSub[StatusUpdate]
	statusSubs     []<-chan StatusUpdate

	// frozen is read under either sub mutex, so Freeze writes it while
	// holding both.
	frozen bool
}

func (s *store) Freeze() {
	s.logSubMutex.Lock()
	s.statusSubMutex.Lock()
	s.frozen = true
	for _, ch := range s.logSubs {
		s.logPubSub.Unsub(ch)
	}
	s.logSubs = nil
	for _, ch := range s.statusSubs {
		s.statusPubSub.Unsub(ch)
	}
	s.statusSubs = nil
	s.statusSubMutex.Unlock()
	s.logSubMutex.Unlock()
}
