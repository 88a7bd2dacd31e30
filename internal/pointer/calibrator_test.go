package pointer

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCalibrator_SingleObservation(t *testing.T) {
	c := NewCalibrator(DefaultCalibrationMargin, DefaultMinCalibrationRange)

	got := c.Observe(Point{X: 0.5, Y: 0.5})

	// One point claims no range: min is pushed to 0.55, max to 0.45.
	want := Bounds{MinX: 0.55, MaxX: 0.45, MinY: 0.55, MaxY: 0.45}
	if diff := cmp.Diff(want, c.Bounds(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}
	if got.X != 0 || got.Y != 0 {
		t.Errorf("expected single point to calibrate to origin, got %+v", got)
	}
}

func TestCalibrator_Sweep(t *testing.T) {
	c := NewCalibrator(DefaultCalibrationMargin, DefaultMinCalibrationRange)

	c.Observe(Point{X: 0.3, Y: 0.3})
	c.Observe(Point{X: 0.7, Y: 0.7})

	want := Bounds{MinX: 0.35, MaxX: 0.65, MinY: 0.35, MaxY: 0.65}
	if diff := cmp.Diff(want, c.Bounds(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{"center", 0.5, 0.5},
		{"lower edge", 0.35, 0},
		{"upper edge", 0.65, 1},
		{"below range clamps", 0.1, 0},
		{"above range clamps", 0.95, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Calibrate(Point{X: tt.raw, Y: tt.raw})
			if math.Abs(got.X-tt.want) > 1e-9 || math.Abs(got.Y-tt.want) > 1e-9 {
				t.Errorf("Calibrate(%v) = %+v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCalibrator_MinimumRange(t *testing.T) {
	c := NewCalibrator(DefaultCalibrationMargin, DefaultMinCalibrationRange)

	c.Observe(Point{X: 0.50, Y: 0.50})
	c.Observe(Point{X: 0.62, Y: 0.62})

	// Observed span is 0.02, floored to 0.1.
	got := c.Calibrate(Point{X: 0.6, Y: 0.6})
	if math.Abs(got.X-0.5) > 1e-9 {
		t.Errorf("expected floored range to give 0.5, got %f", got.X)
	}
}

func TestCalibrator_AxesIndependent(t *testing.T) {
	c := NewCalibrator(DefaultCalibrationMargin, DefaultMinCalibrationRange)

	c.Observe(Point{X: 0.2, Y: 0.5})
	c.Observe(Point{X: 0.8, Y: 0.5})

	b := c.Bounds()
	if b.RangeX() <= 0 {
		t.Errorf("expected positive X range, got %f", b.RangeX())
	}
	if b.RangeY() >= 0 {
		t.Errorf("expected Y range untouched by horizontal sweep, got %f", b.RangeY())
	}
}

func TestCalibrator_Reset(t *testing.T) {
	c := NewCalibrator(DefaultCalibrationMargin, DefaultMinCalibrationRange)
	c.Observe(Point{X: 0.2, Y: 0.2})
	c.Observe(Point{X: 0.8, Y: 0.8})

	c.Reset()

	if !c.Bounds().IsEmpty() {
		t.Errorf("expected empty bounds after reset, got %+v", c.Bounds())
	}
}

func TestCalibrator_OutputAlwaysInUnitSquare(t *testing.T) {
	c := NewCalibrator(DefaultCalibrationMargin, DefaultMinCalibrationRange)

	for _, raw := range []Point{{0, 0}, {1, 1}, {0.3, 0.9}, {0.99, 0.01}, {0.5, 0.5}} {
		got := c.Observe(raw)
		if got.X < 0 || got.X > 1 || got.Y < 0 || got.Y > 1 {
			t.Errorf("Observe(%+v) = %+v, outside [0,1]", raw, got)
		}
	}
}
