package resultstore

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/typ.v4/chans"
)

var (
	newLineBytes    = []byte{'\n'}
	logLineReplacer = strings.NewReplacer(
		"\n", `\n`,
		"\r", `\r`,
	)
	fileNameLogs = "logs.log"
)

// ErrFrozen is returned when subscribing to a store that has been frozen.
var ErrFrozen = errors.New("result store is frozen")

func (s *store) SubAllLogLines(buffer int) (<-chan LogLine, error) {
	s.logSubMutex.Lock()
	defer s.logSubMutex.Unlock()
	if s.frozen {
		return nil, ErrFrozen
	}
	readers, err := s.openAllLogReadersForCatchingUp()
	if err != nil {
		return nil, fmt.Errorf("open all log file handles: %w", err)
	}
	ch := s.logPubSub.SubBuf(buffer)
	s.logSubs = append(s.logSubs, ch)
	go s.pubAllLogsToChanToCatchUp(readers, s.logPubSub.WithOnly(ch))
	return ch, nil
}

func (s *store) openAllLogReadersForCatchingUp() ([]LogLineReadCloser, error) {
	jobIDs, err := s.ListJobIDs()
	if err != nil {
		return nil, fmt.Errorf("list all jobs: %w", err)
	}
	readers := make([]LogLineReadCloser, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		r, err := s.OpenLogReader(jobID)
		if err != nil {
			return nil, fmt.Errorf("read logs for job %d: %w", jobID, err)
		}
		readers = append(readers, r)
	}
	return readers, nil
}

func (s *store) pubAllLogsToChanToCatchUp(readers []LogLineReadCloser, pubSub *chans.PubSub[LogLine]) {
	for _, r := range readers {
		go s.pubLogsToChanToCatchUp(r, pubSub)
	}
}

func (s *store) pubLogsToChanToCatchUp(r LogLineReadCloser, pubSub *chans.PubSub[LogLine]) error {
	defer r.Close()
	for {
		line, err := r.ReadLogLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		pubSub.PubSync(line)
	}
}

func (s *store) UnsubAllLogLines(logLineCh <-chan LogLine) error {
	s.logSubMutex.Lock()
	defer s.logSubMutex.Unlock()
	for i, ch := range s.logSubs {
		if ch == logLineCh {
			s.logSubs = append(s.logSubs[:i], s.logSubs[i+1:]...)
			break
		}
	}
	return s.logPubSub.Unsub(logLineCh)
}

func (s *store) pubLogLine(logLine LogLine) {
	// Locking to prevent new data being added during fetching existing data
	// part of when a new subscription is made.
	s.logSubMutex.RLock()
	if !s.frozen {
		s.logPubSub.PubSync(logLine)
	}
	s.logSubMutex.RUnlock() // not deferring as it's performance critical
}

func (s *store) resolveLogPath(jobID uint64) string {
	return filepath.Join(dirNameJobs, fmt.Sprint(jobID), fileNameLogs)
}

func parseLogLine(line string) (time.Time, string) {
	index := strings.IndexByte(line, ' ')
	if index == -1 {
		return time.Time{}, line
	}
	timeStr := line[:index]
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return time.Time{}, line
	}
	message := line[index+1:]
	return t, message
}

func sanitizeLogLine(line string) string {
	return logLineReplacer.Replace(line)
}
