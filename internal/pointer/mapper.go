package pointer

// Amplify scales a calibrated coordinate around the center by sensitivity
// and clamps the result to the unit square.
func Amplify(c Point, sensitivity float64) Point {
	return Point{
		X: clamp01((c.X-0.5)*sensitivity + 0.5),
		Y: clamp01((c.Y-0.5)*sensitivity + 0.5),
	}
}

// Map projects a calibrated coordinate into the surface rectangle after
// amplification and optional horizontal mirroring.
func Map(c Point, surface Rect, sensitivity float64, mirrored bool) Point {
	scaled := Amplify(c, sensitivity)
	if mirrored {
		scaled.X = 1 - scaled.X
	}

	return Point{
		X: surface.X + scaled.X*surface.Width,
		Y: surface.Y + scaled.Y*surface.Height,
	}
}
