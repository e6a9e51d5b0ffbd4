package scale

import (
	"math"
	"time"
)

// Time is a linear scale from a time domain to a numeric range. The range may
// be inverted (R0 > R1), as the activity view maps later times upward.
type Time struct {
	D0, D1 time.Time
	R0, R1 float64
	Loc    *time.Location
}

// NewTime returns a time scale in the given location (nil means time.Local).
func NewTime(d0, d1 time.Time, r0, r1 float64, loc *time.Location) Time {
	if loc == nil {
		loc = time.Local
	}
	return Time{D0: d0.In(loc), D1: d1.In(loc), R0: r0, R1: r1, Loc: loc}
}

func ms(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e6
}

func fromMs(v float64, loc *time.Location) time.Time {
	sec := math.Floor(v / 1e3)
	nsec := math.Round((v - sec*1e3) * 1e6)
	return time.Unix(int64(sec), int64(nsec)).In(loc)
}

// Map projects t into the range.
func (s Time) Map(t time.Time) float64 {
	d0, d1 := ms(s.D0), ms(s.D1)
	if d1 == d0 {
		return (s.R0 + s.R1) / 2
	}
	return s.R0 + (ms(t)-d0)/(d1-d0)*(s.R1-s.R0)
}

// Invert projects a range value back into the domain.
func (s Time) Invert(v float64) time.Time {
	if s.R1 == s.R0 {
		return s.D0
	}
	d0, d1 := ms(s.D0), ms(s.D1)
	return fromMs(d0+(v-s.R0)/(s.R1-s.R0)*(d1-d0), s.location())
}

// WithDomain returns a copy of s over [d0, d1], normalised to ascending order.
func (s Time) WithDomain(d0, d1 time.Time) Time {
	if d1.Before(d0) {
		d0, d1 = d1, d0
	}
	s.D0, s.D1 = d0.In(s.location()), d1.In(s.location())
	return s
}

func (s Time) location() *time.Location {
	if s.Loc == nil {
		return time.Local
	}
	return s.Loc
}

// YearSpan returns the activity-view domain: 1 January 00:00:00 of min's year
// to 31 December 23:59:59 of max's year, in loc.
func YearSpan(min, max time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(min.In(loc).Year(), time.January, 1, 0, 0, 0, 0, loc)
	end := time.Date(max.In(loc).Year(), time.December, 31, 23, 59, 59, 0, loc)
	return start, end
}
