// Package system supplies the wall clock used to stamp download records.
package system

import "time"

// Clock stamps DownloadRecord.DownloadedAt and published events. Readings are
// UTC at microsecond precision, which is what a Postgres timestamptz keeps, so
// a record read back from the table equals the one that was written.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to microseconds.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
