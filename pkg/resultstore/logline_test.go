package resultstore

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteLogLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(mockFS{
		openAppend: func(string) (io.WriteCloser, error) {
			return nopWriteCloser{&buf}, nil
		},
	})
	w, err := s.OpenLogWriter(1)
	require.NoError(t, err)
	require.NoError(t, w.WriteLogLine("Foo bar"))
	require.NoError(t, w.Close())

	line := buf.String()
	require.NotEmpty(t, line)
	assert.Equal(t, byte('\n'), line[len(line)-1], "trailing newline")
	tim, msg := parseLogLine(line[:len(line)-1])
	assert.Equal(t, "Foo bar", msg)
	assert.WithinDuration(t, time.Now(), tim, time.Minute)
}

func TestStore_WriteLogLineSanitizes(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(mockFS{
		openAppend: func(string) (io.WriteCloser, error) {
			return nopWriteCloser{&buf}, nil
		},
	})
	w, err := s.OpenLogWriter(1)
	require.NoError(t, err)
	require.NoError(t, w.WriteLogLine("multi\nline"))
	require.NoError(t, w.Close())

	_, msg := parseLogLine(strings.TrimSuffix(buf.String(), "\n"))
	assert.Equal(t, `multi\nline`, msg)
}

func TestStore_OpenLogWriterTwiceFails(t *testing.T) {
	s := NewStore(mockFS{
		openAppend: func(string) (io.WriteCloser, error) {
			return nopWriteCloser{}, nil
		},
	})
	w, err := s.OpenLogWriter(1)
	require.NoError(t, err)
	_, err = s.OpenLogWriter(1)
	assert.ErrorIs(t, err, ErrLogWriterAlreadyOpen)

	require.NoError(t, w.Close())
	_, err = s.OpenLogWriter(1)
	assert.NoError(t, err, "open again after close")
}

func TestStore_ReadAllLogLines(t *testing.T) {
	buf := bytes.NewBufferString(`2021-11-24T11:22:08.800Z Foo bar
2021-11-24T11:22:08.800Z Moo doo
2021-11-24T11:22:08.800Z Baz taz`)
	s := NewStore(mockFS{
		openRead: func(name string) (io.ReadCloser, error) {
			return io.NopCloser(buf), nil
		},
	})
	jobID := uint64(1)
	got, err := s.ReadAllLogLines(jobID)
	require.NoError(t, err)
	wantTime := time.Date(2021, 11, 24, 11, 22, 8, 800000000, time.UTC)
	want := []LogLine{
		{JobID: jobID, LogID: 1, Line: "Foo bar", Timestamp: wantTime},
		{JobID: jobID, LogID: 2, Line: "Moo doo", Timestamp: wantTime},
		{JobID: jobID, LogID: 3, Line: "Baz taz", Timestamp: wantTime},
	}
	assert.Equal(t, want, got)
}

func TestStore_ReadLastLogLine(t *testing.T) {
	buf := bytes.NewBufferString(`2021-11-24T11:22:08.800Z Foo bar
2021-11-24T11:22:08.800Z Baz taz`)
	s := NewStore(mockFS{
		openRead: func(name string) (io.ReadCloser, error) {
			return io.NopCloser(buf), nil
		},
	}).(*store)
	r, err := s.OpenLogReader(1)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.ReadLastLogLine()
	require.NoError(t, err)
	assert.Equal(t, "Baz taz", got.Line)
	assert.Equal(t, uint64(2), got.LogID)
}

func TestStore_SubAllLogLines(t *testing.T) {
	s := NewStore(mockFS{
		openAppend: func(string) (io.WriteCloser, error) {
			return nopWriteCloser{}, nil
		},
	})
	ch, err := s.SubAllLogLines(10)
	require.NoError(t, err)

	w, err := s.OpenLogWriter(1)
	require.NoError(t, err)
	require.NoError(t, w.WriteLogLine("Foo bar"))
	require.NoError(t, w.Close())

	select {
	case line := <-ch:
		assert.Equal(t, uint64(1), line.JobID)
		assert.Equal(t, "Foo bar", line.Line)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log line")
	}
	require.NoError(t, s.UnsubAllLogLines(ch))
}

func TestParseLogLine(t *testing.T) {
	sampleTimeStr := "2021-05-09T12:13:14.1234Z"
	sampleTime := time.Date(2021, 5, 9, 12, 13, 14, 123400000, time.UTC)
	zeroTime := time.Time{}
	testCases := []struct {
		name     string
		input    string
		wantTime time.Time
		wantLine string
	}{
		{
			name:     "empty line",
			input:    "",
			wantTime: zeroTime,
			wantLine: "",
		},
		{
			name:     "missing time",
			input:    "hello world",
			wantTime: zeroTime,
			wantLine: "hello world",
		},
		{
			name:     "with time",
			input:    sampleTimeStr + " hello world",
			wantTime: sampleTime,
			wantLine: "hello world",
		},
		{
			name:     "invalid time",
			input:    "2021-99-09T55:13:65.1234Z hello world",
			wantTime: zeroTime,
			wantLine: "2021-99-09T55:13:65.1234Z hello world",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tim, line := parseLogLine(tc.input)
			assert.Equal(t, tc.wantLine, line, "log line")
			assert.Equal(t, tc.wantTime, tim, "log time")
		})
	}
}

func TestSanitizeLogLine(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "no changes",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "newlines",
			input: "hello\n\r world",
			want:  `hello\n\r world`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeLogLine(tc.input)
			assert.Equal(t, tc.want, got)
		})
	}
}
