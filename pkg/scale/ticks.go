package scale

import (
	"math"
	"sort"
	"time"
)

// Unit is a calendar interval used for tick generation and label tiers.
type Unit int

const (
	Millisecond Unit = iota
	Second
	Minute
	Hour
	Day
	Week
	Month
	Year
)

const (
	durationSecond = 1e3
	durationMinute = durationSecond * 60
	durationHour   = durationMinute * 60
	durationDay    = durationHour * 24
	durationWeek   = durationDay * 7
	durationMonth  = durationDay * 30
	durationYear   = durationDay * 365
)

type tickInterval struct {
	unit     Unit
	step     int
	duration float64
}

var tickIntervals = []tickInterval{
	{Second, 1, durationSecond},
	{Second, 5, 5 * durationSecond},
	{Second, 15, 15 * durationSecond},
	{Second, 30, 30 * durationSecond},
	{Minute, 1, durationMinute},
	{Minute, 5, 5 * durationMinute},
	{Minute, 15, 15 * durationMinute},
	{Minute, 30, 30 * durationMinute},
	{Hour, 1, durationHour},
	{Hour, 3, 3 * durationHour},
	{Hour, 6, 6 * durationHour},
	{Hour, 12, 12 * durationHour},
	{Day, 1, durationDay},
	{Day, 2, 2 * durationDay},
	{Week, 1, durationWeek},
	{Month, 1, durationMonth},
	{Month, 3, 3 * durationMonth},
	{Year, 1, durationYear},
}

// Floor rounds t down to the start of the unit in t's location. Weeks start on
// Sunday.
func Floor(t time.Time, u Unit) time.Time {
	loc := t.Location()
	switch u {
	case Millisecond:
		return t.Truncate(time.Millisecond)
	case Second:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	case Minute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	case Hour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case Week:
		d := Floor(t, Day)
		return d.AddDate(0, 0, -int(d.Weekday()))
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}
}

func offset(t time.Time, u Unit, n int) time.Time {
	switch u {
	case Millisecond:
		return t.Add(time.Duration(n) * time.Millisecond)
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Day:
		return t.AddDate(0, 0, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(n, 0, 0)
	}
}

// field is the value the every(step) filter tests for divisibility.
func field(t time.Time, u Unit) int {
	switch u {
	case Millisecond:
		return t.Nanosecond() / int(time.Millisecond)
	case Second:
		return t.Second()
	case Minute:
		return t.Minute()
	case Hour:
		return t.Hour()
	case Day:
		return t.Day() - 1
	case Month:
		return int(t.Month()) - 1
	case Year:
		return t.Year()
	default:
		return 0
	}
}

// rangeEvery lists unit boundaries in [start, stop] whose field is a multiple
// of step.
func rangeEvery(start, stop time.Time, u Unit, step int) []time.Time {
	if step < 1 {
		step = 1
	}
	t := Floor(start, u)
	if t.Before(start) {
		t = offset(t, u, 1)
	}
	var out []time.Time
	for guard := 0; !t.After(stop) && guard < 100000; guard++ {
		if step == 1 || field(t, u)%step == 0 {
			out = append(out, t)
		}
		t = offset(t, u, 1)
	}
	return out
}

// tickStep returns a 1-2-5 step spanning [start, stop] in about count steps.
func tickStep(start, stop float64, count int) float64 {
	step0 := math.Abs(stop-start) / math.Max(0, float64(count))
	if step0 == 0 || math.IsInf(step0, 0) || math.IsNaN(step0) {
		return 1
	}
	step1 := math.Pow(10, math.Floor(math.Log10(step0)))
	e := step0 / step1
	switch {
	case e >= math.Sqrt(50):
		step1 *= 10
	case e >= math.Sqrt(10):
		step1 *= 5
	case e >= math.Sqrt(2):
		step1 *= 2
	}
	if stop < start {
		return -step1
	}
	return step1
}

// Ticks returns about count human-friendly timestamps across the domain.
func (s Time) Ticks(count int) []time.Time {
	start, stop := s.D0, s.D1
	if stop.Before(start) {
		start, stop = stop, start
	}
	if count <= 0 {
		count = 10
	}
	a, b := ms(start), ms(stop)
	target := math.Abs(b-a) / float64(count)

	i := sort.Search(len(tickIntervals), func(i int) bool {
		return tickIntervals[i].duration > target
	})
	var unit Unit
	var step int
	switch {
	case i == len(tickIntervals):
		unit = Year
		step = int(math.Max(1, tickStep(a/durationYear, b/durationYear, count)))
	case i == 0:
		unit = Millisecond
		step = int(math.Max(1, tickStep(a, b, count)))
	default:
		pick := tickIntervals[i]
		if target/tickIntervals[i-1].duration < tickIntervals[i].duration/target {
			pick = tickIntervals[i-1]
		}
		unit, step = pick.unit, pick.step
	}
	return rangeEvery(start, stop, unit, step)
}
