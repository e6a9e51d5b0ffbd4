// Package scale maps domain values (categories, timestamps) onto scene
// coordinates and generates axis ticks.
package scale

// Band divides a continuous range into equal bands, one per domain value,
// in domain order starting at R0.
type Band struct {
	Domain []string
	R0, R1 float64
}

// NewBand returns a band scale over [r0, r1].
func NewBand(domain []string, r0, r1 float64) Band {
	return Band{Domain: domain, R0: r0, R1: r1}
}

// Bandwidth is the extent of one band.
func (b Band) Bandwidth() float64 {
	if len(b.Domain) == 0 {
		return 0
	}
	return (b.R1 - b.R0) / float64(len(b.Domain))
}

// Index returns the position of v in the domain.
func (b Band) Index(v string) (int, bool) {
	for i, d := range b.Domain {
		if d == v {
			return i, true
		}
	}
	return -1, false
}

// Start returns the leading edge of band i.
func (b Band) Start(i int) float64 {
	return b.R0 + float64(i)*b.Bandwidth()
}

// Map returns the leading edge of v's band.
func (b Band) Map(v string) (float64, bool) {
	i, ok := b.Index(v)
	if !ok {
		return 0, false
	}
	return b.Start(i), true
}

// Bounds returns the closed interval covered by band i.
func (b Band) Bounds(i int) (lo, hi float64) {
	lo = b.Start(i)
	hi = lo + b.Bandwidth()
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
