package viewport

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/threatgraph/pkg/scale"
)

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func drawTransform(t *rapid.T) Transform {
	return Transform{
		X: rapid.Float64Range(-2000, 2000).Draw(t, "x"),
		Y: rapid.Float64Range(-2000, 2000).Draw(t, "y"),
		K: rapid.Float64Range(0.05, 500).Draw(t, "k"),
	}
}

func TestApplyInvertRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := drawTransform(rt)
		p := r2.Vec{X: rapid.Float64Range(-1e4, 1e4).Draw(rt, "px"), Y: rapid.Float64Range(-1e4, 1e4).Draw(rt, "py")}
		back := tr.Invert(tr.Apply(p))
		if !approx(back.X, p.X, 1e-9) || !approx(back.Y, p.Y, 1e-9) {
			rt.Fatalf("Invert(Apply(%v)) = %v", p, back)
		}
		if !approx(tr.ApplyY(p.Y), tr.Apply(p).Y, 1e-12) || !approx(tr.InvertY(p.Y), tr.Invert(p).Y, 1e-12) {
			rt.Fatal("axis helpers disagree with vector forms")
		}
	})
}

func TestTranslateScaleBy(t *testing.T) {
	tr := Transform{X: 10, Y: 20, K: 2}.Translate(5, -5)
	if tr != (Transform{X: 20, Y: 10, K: 2}) {
		t.Errorf("Translate = %+v", tr)
	}
	if got := tr.ScaleBy(3); got.K != 6 || got.X != 20 || got.Y != 10 {
		t.Errorf("ScaleBy = %+v", got)
	}
	if s := Identity.String(); s != "translate(0,0) scale(1)" {
		t.Errorf("String = %q", s)
	}
}

// The rescaled axis must place any timestamp exactly where the transform puts
// the node mapped through the base scale.
func TestRescaleYConsistentWithTransform(t *testing.T) {
	loc := time.UTC
	d0, d1 := scale.YearSpan(time.Date(2019, 1, 1, 0, 0, 0, 0, loc), time.Date(2022, 1, 1, 0, 0, 0, 0, loc), loc)
	base := scale.NewTime(d0, d1, 650, 0, loc)

	rapid.Check(t, func(rt *rapid.T) {
		tr := drawTransform(rt)
		frac := rapid.Float64Range(0, 1).Draw(rt, "frac")
		ts := d0.Add(time.Duration(frac * float64(d1.Sub(d0))))

		rescaled := tr.RescaleY(base)
		want := tr.ApplyY(base.Map(ts))
		got := rescaled.Map(ts)
		if math.Abs(got-want) > 1e-3*math.Max(1, tr.K) {
			rt.Fatalf("rescaled y = %v, transformed y = %v (k=%v)", got, want, tr.K)
		}
		if rescaled.R0 != base.R0 || rescaled.R1 != base.R1 {
			rt.Fatal("RescaleY must keep the range")
		}
	})
}

func TestZoomClampsScale(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		z := NewZoom(0.5, 40, 1300, 650)
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				z.ZoomIn()
			case 1:
				z.ZoomOut()
			case 2:
				z.Wheel(rapid.Float64Range(-2000, 2000).Draw(rt, "dy"), DeltaPixel, r2.Vec{X: 100, Y: 100})
			case 3:
				z.Pan(rapid.Float64Range(-50, 50).Draw(rt, "dx"), 0)
			}
			if k := z.Transform().K; k < 0.5 || k > 40 {
				rt.Fatalf("k = %v escaped [0.5, 40]", k)
			}
		}
	})
}

func TestScaleToKeepsAnchor(t *testing.T) {
	z := NewZoom(0.1, 100, 1300, 650)
	z.Pan(30, -12)
	anchor := r2.Vec{X: 400, Y: 250}
	before := z.Transform().Invert(anchor)
	z.ScaleTo(7, anchor)
	after := z.Transform().Invert(anchor)
	if !approx(before.X, after.X, 1e-12) || !approx(before.Y, after.Y, 1e-12) {
		t.Errorf("anchor drifted from %v to %v", before, after)
	}
}

func TestZoomButtonsAndReset(t *testing.T) {
	z := NewZoom(0.1, 100, 1300, 650)
	if k := z.ZoomIn().K; !approx(k, 1.2, 1e-12) {
		t.Errorf("ZoomIn k = %v, want 1.2", k)
	}
	if k := z.ZoomOut().K; !approx(k, 0.96, 1e-12) {
		t.Errorf("ZoomOut k = %v, want 0.96", k)
	}
	if tr := z.Reset(); tr != Identity {
		t.Errorf("Reset = %+v", tr)
	}
	if z.DoubleClick(r2.Vec{}) {
		t.Error("double-click must not be a zoom gesture")
	}
	before := z.Transform()
	z.DoubleClick(r2.Vec{X: 5, Y: 5})
	if z.Transform() != before {
		t.Error("double-click changed the transform")
	}
}

func TestWheelDirection(t *testing.T) {
	z := NewZoom(0.1, 100, 1300, 650)
	if k := z.Wheel(-100, DeltaPixel, r2.Vec{}).K; k <= 1 {
		t.Errorf("scrolling up should zoom in, k = %v", k)
	}
	z.Reset()
	if k := z.Wheel(3, DeltaLine, r2.Vec{}).K; k >= 1 {
		t.Errorf("scrolling down should zoom out, k = %v", k)
	}
}

func TestTierFormat(t *testing.T) {
	at := func(y int, mo time.Month, d, h, mi, s, ms int) time.Time {
		return time.Date(y, mo, d, h, mi, s, ms*int(time.Millisecond), time.UTC)
	}
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"millisecond", at(2021, 3, 15, 12, 0, 0, 250), ".250"},
		{"second", at(2021, 3, 15, 12, 0, 30, 0), ":30"},
		{"minute", at(2021, 3, 15, 12, 30, 0, 0), "12:30"},
		{"hour", at(2021, 3, 15, 15, 0, 0, 0), "03 PM"},
		{"day", at(2021, 3, 16, 0, 0, 0, 0), "Tue 16"},
		{"week", at(2021, 3, 14, 0, 0, 0, 0), "Mar 14"},
		{"month", at(2021, 3, 1, 0, 0, 0, 0), "March"},
		{"year", at(2021, 1, 1, 0, 0, 0, 0), "2021"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTick(tt.t, 1, 3, 1, DefaultBoundaryThreshold); got != tt.want {
				t.Errorf("FormatTick(%v) = %q, want %q", tt.t, got, tt.want)
			}
		})
	}
}

func TestFormatTickBoundary(t *testing.T) {
	d := time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		i    int
		k    float64
		want string
	}{
		{"first_zoomed", 0, 388, "Fri  5"},
		{"last_zoomed", 4, 1000, "Fri  5"},
		{"middle_zoomed", 2, 1000, "Fri 05"},
		{"first_below_threshold", 0, 387.9, "Fri 05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTick(d, tt.i, 4, tt.k, DefaultBoundaryThreshold); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeAxisGranularityIncreasesWithZoom(t *testing.T) {
	loc := time.UTC
	d0, d1 := scale.YearSpan(time.Date(2020, 1, 1, 0, 0, 0, 0, loc), time.Date(2021, 1, 1, 0, 0, 0, 0, loc), loc)
	axis := NewTimeAxis(scale.NewTime(d0, d1, 650, 0, loc))

	coarse := axis.Ticks()
	if len(coarse) == 0 {
		t.Fatal("no ticks at identity")
	}
	for _, tk := range coarse {
		if tk.Pos < -1e-6 || tk.Pos > 650+1e-6 {
			t.Errorf("tick %v at %v outside range", tk.Time, tk.Pos)
		}
	}

	z := NewZoom(0.1, 10000, 1300, 650)
	axis.Rescale(z.ScaleTo(400, r2.Vec{X: 0, Y: 325}))
	fine := axis.Ticks()
	if len(fine) < 2 {
		t.Fatalf("expected ticks after zoom, got %d", len(fine))
	}
	span := axis.Current.D1.Sub(axis.Current.D0)
	if span >= d1.Sub(d0)/100 {
		t.Errorf("visible span %v did not shrink", span)
	}
	if fine[0].Label != strftimeBoundary(fine[0].Time) {
		t.Errorf("first tick label %q should use the boundary format", fine[0].Label)
	}
	for _, tk := range fine {
		if !approx(tk.Pos, axis.Current.Map(tk.Time), 1e-9) {
			t.Errorf("tick position %v disagrees with scale", tk.Pos)
		}
	}
}

func strftimeBoundary(t time.Time) string {
	return FormatTick(t, 0, 1, DefaultBoundaryThreshold, DefaultBoundaryThreshold)
}
