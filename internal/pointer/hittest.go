package pointer

// HitTest returns the first enabled target whose rectangle contains p.
// Candidates are expected in paint order; earlier entries win.
func HitTest(p Point, candidates []Target) (Target, bool) {
	for _, t := range candidates {
		if !t.Enabled || t.ID == "" {
			continue
		}
		if t.Rect.Contains(p) {
			return t, true
		}
	}
	return Target{}, false
}

// Eligible filters out disabled targets and the target bound to the pointer
// gesture itself: holding the pointer pose would otherwise dwell on it.
func Eligible(targets []Target, pointerGesture string) []Target {
	key := NormalizeGestureName(pointerGesture)

	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if !t.Enabled || t.ID == "" {
			continue
		}
		if key != "" && NormalizeGestureName(t.ID) == key {
			continue
		}
		out = append(out, t)
	}
	return out
}
