package viewport

import (
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/vanderheijden86/threatgraph/pkg/scale"
)

// Tick label tiers, finest to coarsest.
const (
	FormatMillisecond = ".%L"
	FormatSecond      = ":%S"
	FormatMinute      = "%I:%M"
	FormatHour        = "%I %p"
	FormatDay         = "%a %d"
	FormatWeek        = "%b %d"
	FormatMonth       = "%B"
	FormatYear        = "%Y"

	// FormatBoundary labels the first and last tick once zoomed past the
	// boundary threshold.
	FormatBoundary = "%a %e"
)

// DefaultBoundaryThreshold is the scale at which edge ticks switch to
// FormatBoundary.
const DefaultBoundaryThreshold = 388

// DefaultTickCount is the approximate number of ticks per axis.
const DefaultTickCount = 10

// TierFormat picks the label format for t: the finest unit t is not aligned
// to decides the tier.
func TierFormat(t time.Time) string {
	after := func(u scale.Unit) bool { return scale.Floor(t, u).Before(t) }
	switch {
	case after(scale.Second):
		return FormatMillisecond
	case after(scale.Minute):
		return FormatSecond
	case after(scale.Hour):
		return FormatMinute
	case after(scale.Day):
		return FormatHour
	case after(scale.Month):
		if after(scale.Week) {
			return FormatDay
		}
		return FormatWeek
	case after(scale.Year):
		return FormatMonth
	default:
		return FormatYear
	}
}

// FormatTick labels tick i of ticks 0..last at zoom scale k.
func FormatTick(t time.Time, i, last int, k, threshold float64) string {
	if (i == 0 || i == last) && k >= threshold {
		return strftime.Format(FormatBoundary, t)
	}
	return strftime.Format(TierFormat(t), t)
}

// Tick is one labelled axis position.
type Tick struct {
	Time  time.Time
	Pos   float64
	Label string
}

// TimeAxis is the activity view's vertical axis. Base is the scale at
// identity; Current is Base re-derived through the latest transform.
type TimeAxis struct {
	Base      scale.Time
	Current   scale.Time
	K         float64
	Threshold float64
	Count     int
}

// NewTimeAxis returns an axis at the identity transform.
func NewTimeAxis(base scale.Time) *TimeAxis {
	return &TimeAxis{
		Base:      base,
		Current:   base,
		K:         1,
		Threshold: DefaultBoundaryThreshold,
		Count:     DefaultTickCount,
	}
}

// Rescale re-derives Current from t and returns it.
func (a *TimeAxis) Rescale(t Transform) scale.Time {
	a.Current = t.RescaleY(a.Base)
	a.K = t.K
	return a.Current
}

// Ticks returns the labelled ticks of the current domain.
func (a *TimeAxis) Ticks() []Tick {
	times := a.Current.Ticks(a.Count)
	out := make([]Tick, len(times))
	last := len(times) - 1
	for i, t := range times {
		out[i] = Tick{
			Time:  t,
			Pos:   a.Current.Map(t),
			Label: FormatTick(t, i, last, a.K, a.Threshold),
		}
	}
	return out
}
