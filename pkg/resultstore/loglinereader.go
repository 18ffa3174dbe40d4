package resultstore

import (
	"bufio"
	"io"
)

func (s *store) OpenLogReader(jobID uint64) (LogLineReadCloser, error) {
	file, err := s.fs.OpenRead(s.resolveLogPath(jobID))
	if err != nil {
		return nil, err
	}
	return &logLineReadCloser{
		jobID:   jobID,
		closer:  file,
		scanner: bufio.NewScanner(file),
	}, nil
}

func (s *store) ReadAllLogLines(jobID uint64) ([]LogLine, error) {
	r, err := s.OpenLogReader(jobID)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var lines []LogLine
	for {
		line, err := r.ReadLogLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

type logLineReadCloser struct {
	jobID   uint64
	logID   uint64
	closer  io.Closer
	scanner *bufio.Scanner
}

func (r *logLineReadCloser) ReadLogLine() (LogLine, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return LogLine{}, err
		}
		return LogLine{}, io.EOF
	}
	r.logID++
	return r.parseLogLine(r.scanner.Text()), nil
}

func (r *logLineReadCloser) ReadLastLogLine() (LogLine, error) {
	var any bool
	var lastLine string
	for r.scanner.Scan() {
		any = true
		lastLine = r.scanner.Text()
		r.logID++
	}
	if err := r.scanner.Err(); err != nil {
		return LogLine{}, err
	}
	if !any {
		return LogLine{}, io.EOF
	}
	return r.parseLogLine(lastLine), nil
}

func (r *logLineReadCloser) parseLogLine(text string) LogLine {
	tim, msg := parseLogLine(text)
	return LogLine{
		JobID:     r.jobID,
		LogID:     r.logID,
		Line:      msg,
		Timestamp: tim,
	}
}

func (r *logLineReadCloser) Close() error {
	return r.closer.Close()
}
