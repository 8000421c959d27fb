package flipclock

import "time"

// Reading is a wall-clock time split into the fields shown on screen.
type Reading struct {
	Hours   int
	Minutes int
	Seconds int
}

// ReadingOf extracts hours (0-23), minutes and seconds (0-59) from t in t's
// own location.
func ReadingOf(t time.Time) Reading {
	return Reading{
		Hours:   t.Hour(),
		Minutes: t.Minute(),
		Seconds: t.Second(),
	}
}

// Value returns the reading's value for field.
func (r Reading) Value(field Field) int {
	switch field {
	case Hours:
		return r.Hours
	case Minutes:
		return r.Minutes
	default:
		return r.Seconds
	}
}

// ClockState holds the time observed by the previous render pass.
//
// It is owned by a Ticker and only touched under the Ticker's lock.
type ClockState struct {
	lastObserved time.Time
}

// LastObserved returns the time captured by the most recent tick.
func (s *ClockState) LastObserved() time.Time {
	return s.lastObserved
}

func (s *ClockState) observe(t time.Time) {
	s.lastObserved = t
}
