package resultstore

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sampleTime = time.Date(2021, 5, 9, 12, 13, 14, 123400000, time.UTC)
)

func TestStatus_StringParseRoundTrip(t *testing.T) {
	statuses := []Status{
		StatusNone,
		StatusScheduling,
		StatusRunning,
		StatusSuccess,
		StatusFailed,
		StatusCancelled,
	}
	for _, status := range statuses {
		t.Run(status.String(), func(t *testing.T) {
			assert.Equal(t, status, ParseStatus(status.String()))
		})
	}
	assert.Equal(t, StatusUnknown, ParseStatus("foo bar"))
}

func TestStatus_JSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(StatusRunning)
	require.NoError(t, err)
	assert.Equal(t, `"Running"`, string(b))

	var status Status
	require.NoError(t, json.Unmarshal(b, &status))
	assert.Equal(t, StatusRunning, status)
}

func TestStore_AddStatusUpdate(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(mockFS{
		openWrite: func(string) (io.WriteCloser, error) {
			buf.Reset()
			return nopWriteCloser{&buf}, nil
		},
		openRead: func(string) (io.ReadCloser, error) {
			if buf.Len() == 0 {
				return nil, os.ErrNotExist
			}
			return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
		},
	})

	require.NoError(t, s.AddStatusUpdate(1, sampleTime, StatusScheduling))
	require.NoError(t, s.AddStatusUpdate(1, sampleTime, StatusRunning))

	var list StatusList
	require.NoError(t, json.Unmarshal(buf.Bytes(), &list))
	require.Len(t, list.StatusUpdates, 2)
	assert.Equal(t, StatusScheduling, list.StatusUpdates[0].Status)
	assert.Equal(t, StatusRunning, list.StatusUpdates[1].Status)
	assert.Equal(t, uint64(1), list.StatusUpdates[0].JobID)
}

func TestStore_AddStatusUpdateSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	var writes int
	s := NewStore(mockFS{
		openWrite: func(string) (io.WriteCloser, error) {
			writes++
			buf.Reset()
			return nopWriteCloser{&buf}, nil
		},
		openRead: func(string) (io.ReadCloser, error) {
			if buf.Len() == 0 {
				return nil, os.ErrNotExist
			}
			return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
		},
	})

	require.NoError(t, s.AddStatusUpdate(1, sampleTime, StatusRunning))
	require.NoError(t, s.AddStatusUpdate(1, sampleTime, StatusRunning))
	assert.Equal(t, 1, writes)
}
