package pointer

// Smooth moves visual a fraction factor of the way toward target.
func Smooth(visual, target Point, factor float64) Point {
	return Point{
		X: visual.X + (target.X-visual.X)*factor,
		Y: visual.Y + (target.Y-visual.Y)*factor,
	}
}

// Smoother low-pass filters the cursor once per render tick.
type Smoother struct {
	factor float64
	pos    Point
	primed bool
}

// NewSmoother creates an unprimed Smoother.
func NewSmoother(factor float64) *Smoother {
	return &Smoother{factor: factor}
}

// Advance returns the next visual position. An unprimed smoother jumps
// straight to target so a re-shown cursor does not fly in from its last
// location.
func (s *Smoother) Advance(target Point) Point {
	if !s.primed {
		s.pos = target
		s.primed = true
		return s.pos
	}
	s.pos = Smooth(s.pos, target, s.factor)
	return s.pos
}

// Hide unprimes the smoother; the next Advance snaps.
func (s *Smoother) Hide() {
	s.primed = false
}

// Position returns the last visual position.
func (s *Smoother) Position() Point {
	return s.pos
}
