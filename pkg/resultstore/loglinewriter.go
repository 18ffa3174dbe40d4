package resultstore

import (
	"errors"
	"io"
	"time"
)

// Errors specific to the LogLineWriteCloser.
var (
	ErrLogWriterAlreadyOpen = errors.New("log write handle is already open for this file")
)

func (s *store) OpenLogWriter(jobID uint64) (LogLineWriteCloser, error) {
	_, alreadyOpen := s.logFilesOpened.LoadOrStore(jobID, struct{}{})
	if alreadyOpen {
		return nil, ErrLogWriterAlreadyOpen
	}
	file, err := s.fs.OpenAppend(s.resolveLogPath(jobID))
	if err != nil {
		s.logFilesOpened.Delete(jobID)
		return nil, err
	}
	return &logLineWriteCloser{
		jobID:       jobID,
		store:       s,
		writeCloser: file,
	}, nil
}

type logLineWriteCloser struct {
	jobID       uint64
	logID       uint64
	store       *store
	writeCloser io.WriteCloser
}

// WriteLogLine stamps the line with the current time and appends it to the
// job's log file, publishing it to any subscribers.
func (w *logLineWriteCloser) WriteLogLine(line string) error {
	timestamp := time.Now()
	sanitized := sanitizeLogLine(line)
	stamped := timestamp.Format(time.RFC3339Nano) + " " + sanitized
	if _, err := w.writeCloser.Write([]byte(stamped)); err != nil {
		return err
	}
	if _, err := w.writeCloser.Write(newLineBytes); err != nil {
		return err
	}
	w.logID++
	w.store.pubLogLine(LogLine{
		JobID:     w.jobID,
		LogID:     w.logID,
		Line:      sanitized,
		Timestamp: timestamp,
	})
	return nil
}

func (w *logLineWriteCloser) Close() error {
	w.store.logFilesOpened.Delete(w.jobID)
	return w.writeCloser.Close()
}
