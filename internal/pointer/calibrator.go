package pointer

import "math"

// Calibrator maintains the observed fingertip range and rescales raw
// coordinates so the user's comfortable reach covers the whole surface.
type Calibrator struct {
	margin   float64
	minRange float64
	bounds   Bounds
}

// NewCalibrator creates a Calibrator with empty bounds.
func NewCalibrator(margin, minRange float64) *Calibrator {
	return &Calibrator{
		margin:   margin,
		minRange: minRange,
		bounds:   EmptyBounds(),
	}
}

// Observe widens the bounds around raw and returns raw mapped into the
// calibrated [0,1] square.
//
// The margin is applied inward (min grows toward x+margin, max toward
// x-margin), so a single observation does not immediately claim any range.
func (c *Calibrator) Observe(raw Point) Point {
	b := &c.bounds
	b.MinX = math.Min(b.MinX, raw.X+c.margin)
	b.MaxX = math.Max(b.MaxX, raw.X-c.margin)
	b.MinY = math.Min(b.MinY, raw.Y+c.margin)
	b.MaxY = math.Max(b.MaxY, raw.Y-c.margin)

	return c.Calibrate(raw)
}

// Calibrate maps raw against the current bounds without widening them.
func (c *Calibrator) Calibrate(raw Point) Point {
	rangeX := math.Max(c.minRange, c.bounds.RangeX())
	rangeY := math.Max(c.minRange, c.bounds.RangeY())

	return Point{
		X: clamp01((raw.X - c.bounds.MinX) / rangeX),
		Y: clamp01((raw.Y - c.bounds.MinY) / rangeY),
	}
}

// Bounds returns a snapshot of the current bounds.
func (c *Calibrator) Bounds() Bounds {
	return c.bounds
}

// Reset returns the bounds to the empty default.
func (c *Calibrator) Reset() {
	c.bounds = EmptyBounds()
}
