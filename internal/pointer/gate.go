package pointer

// Gate combines the host's explicit enable flag with the global cooldown.
type Gate struct {
	enabled  bool
	cooldown bool
}

// Enabled reports whether the host has armed the engine.
func (g *Gate) Enabled() bool { return g.enabled }

// CooldownActive reports whether a global cooldown is in effect.
func (g *Gate) CooldownActive() bool { return g.cooldown }

// Suppressed reports whether interaction is currently blocked.
func (g *Gate) Suppressed() bool {
	return !g.enabled || g.cooldown
}

// SetEnabled arms or disarms the engine and reports whether the value changed.
func (g *Gate) SetEnabled(enabled bool) bool {
	changed := g.enabled != enabled
	g.enabled = enabled
	return changed
}

// SetCooldown updates the cooldown from a percentage; any positive value
// is a cooldown. It reports whether the cooldown flag changed.
func (g *Gate) SetCooldown(percent float64) bool {
	active := percent > 0
	changed := g.cooldown != active
	g.cooldown = active
	return changed
}
