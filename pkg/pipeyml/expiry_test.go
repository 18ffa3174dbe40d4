package pipeyml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{input: "never", want: 0},
		{input: "Never", want: 0},
		{input: "", want: 0},
		{input: "30s", want: 30 * time.Second},
		{input: "1h30m", want: 90 * time.Minute},
		{input: "42 seconds", want: 42 * time.Second},
		{input: "3 mins 4 sec", want: 3*time.Minute + 4*time.Second},
		{input: "1 day", want: 24 * time.Hour},
		{input: "30 days", want: 30 * 24 * time.Hour},
		{input: "1 week", want: 7 * 24 * time.Hour},
		{input: "2 weeks", want: 14 * 24 * time.Hour},
		{input: "6 months", want: 180 * 24 * time.Hour},
		{input: "1 year", want: 365 * 24 * time.Hour},
		{input: "1.5 days", want: 36 * time.Hour},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseExpiry(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Duration)
		})
	}
}

func TestParseExpiry_Invalid(t *testing.T) {
	tests := []string{
		"forever",
		"30 parsecs",
		"days 30",
		"30",
		"-1 day",
		"one week",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseExpiry(input)
			assert.ErrorIs(t, err, ErrExpiryInvalid)
		})
	}
}

func TestExpiry_Never(t *testing.T) {
	never, err := ParseExpiry("never")
	require.NoError(t, err)
	assert.True(t, never.Never())
	assert.Equal(t, "never", never.String())

	_, ok := never.Deadline(time.Now())
	assert.False(t, ok, "never expiring has no deadline")
}

func TestExpiry_Deadline(t *testing.T) {
	expiry, err := ParseExpiry("1 week")
	require.NoError(t, err)
	createdAt := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline, ok := expiry.Deadline(createdAt)
	require.True(t, ok)
	assert.Equal(t, time.Date(2022, 6, 8, 12, 0, 0, 0, time.UTC), deadline)
}
