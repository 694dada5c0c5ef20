package engine

import "time"

// Clock supplies wall-clock time to the engine. Conditions compare against
// it and logs are stamped with it, so tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// passTime truncates to the millisecond resolution timestamps are stored with,
// so in-memory and SQL comparisons see identical values.
func passTime(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Millisecond)
}
