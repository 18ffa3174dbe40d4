package pipeyml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Errors related to parsing expiry durations.
var (
	ErrExpiryInvalid = errors.New("invalid expiry duration")
)

// Expiry is how long an artifact is kept before it is eligible for pruning.
// The zero value means never expiring.
type Expiry struct {
	Duration time.Duration
}

// Never returns whether this expiry means the artifact is kept forever.
func (e Expiry) Never() bool {
	return e.Duration == 0
}

// Deadline returns the absolute time the artifact expires, counting from the
// given creation time, and whether it expires at all.
func (e Expiry) Deadline(createdAt time.Time) (time.Time, bool) {
	if e.Never() {
		return time.Time{}, false
	}
	return createdAt.Add(e.Duration), true
}

// String implements the fmt.Stringer interface.
func (e Expiry) String() string {
	if e.Never() {
		return "never"
	}
	return e.Duration.String()
}

var expiryUnits = map[string]time.Duration{
	"s":       time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       24 * time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
	"w":       7 * 24 * time.Hour,
	"week":    7 * 24 * time.Hour,
	"weeks":   7 * 24 * time.Hour,
	"month":   30 * 24 * time.Hour,
	"months":  30 * 24 * time.Hour,
	"y":       365 * 24 * time.Hour,
	"year":    365 * 24 * time.Hour,
	"years":   365 * 24 * time.Hour,
}

// ParseExpiry parses a human duration such as "30 days", "1 week",
// "3 mins 4 sec", or "never". Plain Go durations like "1h30m" are accepted
// too.
func ParseExpiry(s string) (Expiry, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" || trimmed == "never" {
		return Expiry{}, nil
	}
	if dur, err := time.ParseDuration(trimmed); err == nil {
		if dur <= 0 {
			return Expiry{}, fmt.Errorf("%w: must be positive: %q", ErrExpiryInvalid, s)
		}
		return Expiry{Duration: dur}, nil
	}
	fields := strings.Fields(trimmed)
	if len(fields)%2 != 0 {
		return Expiry{}, fmt.Errorf("%w: %q", ErrExpiryInvalid, s)
	}
	var total time.Duration
	for i := 0; i < len(fields); i += 2 {
		count, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Expiry{}, fmt.Errorf("%w: %q", ErrExpiryInvalid, s)
		}
		unit, ok := expiryUnits[fields[i+1]]
		if !ok {
			return Expiry{}, fmt.Errorf("%w: unknown unit %q in %q",
				ErrExpiryInvalid, fields[i+1], s)
		}
		total += time.Duration(count * float64(unit))
	}
	if total <= 0 {
		return Expiry{}, fmt.Errorf("%w: must be positive: %q", ErrExpiryInvalid, s)
	}
	return Expiry{Duration: total}, nil
}
