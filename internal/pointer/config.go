package pointer

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Defaults for the pointer pipeline.
const (
	DefaultPointerGesture      = "Pointing_Up"
	DefaultSensitivity         = 1.2
	DefaultDwellDuration       = 1000 * time.Millisecond
	DefaultSmoothingFactor     = 0.4
	DefaultCalibrationMargin   = 0.05
	DefaultMinCalibrationRange = 0.1
	DefaultCalibrationIdle     = 1500 * time.Millisecond
	DefaultFrameInterval       = 16 * time.Millisecond

	// MaxSensitivity caps amplification; beyond it the cursor jumps
	// edge to edge on tracking noise alone.
	MaxSensitivity = 5.0
)

// Preference keys read and written by the engine.
const (
	PrefPointerGesture = "pointer.gesture"
	PrefMirrored       = "pointer.mirrored"
)

// Config holds tuning for the engine.
type Config struct {
	// PointerGesture is the recognized gesture label that arms the pointer.
	PointerGesture string

	// Mirrored flips the horizontal axis, for front-facing cameras.
	Mirrored bool

	// Sensitivity amplifies motion around the surface center.
	Sensitivity float64

	// DwellDuration is how long a target must be hovered to activate it.
	DwellDuration time.Duration

	// SmoothingFactor is the per-tick low-pass weight in (0,1].
	SmoothingFactor float64

	// CalibrationMargin is the inward margin applied to each observation.
	CalibrationMargin float64

	// MinCalibrationRange floors the calibrated range.
	MinCalibrationRange float64

	// CalibrationIdle resets calibration when no qualifying sample arrives for this long.
	CalibrationIdle time.Duration

	// FrameInterval is the render tick period used by Run.
	FrameInterval time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		PointerGesture:      DefaultPointerGesture,
		Mirrored:            false,
		Sensitivity:         DefaultSensitivity,
		DwellDuration:       DefaultDwellDuration,
		SmoothingFactor:     DefaultSmoothingFactor,
		CalibrationMargin:   DefaultCalibrationMargin,
		MinCalibrationRange: DefaultMinCalibrationRange,
		CalibrationIdle:     DefaultCalibrationIdle,
		FrameInterval:       DefaultFrameInterval,
	}
}

// Sanitize returns a copy of c with invalid values replaced by defaults.
// It never fails: a misconfigured engine still runs.
func (c Config) Sanitize() Config {
	if strings.TrimSpace(c.PointerGesture) == "" {
		c.PointerGesture = DefaultPointerGesture
	}

	if !finite(c.Sensitivity) || c.Sensitivity <= 0 {
		c.Sensitivity = DefaultSensitivity
	} else if c.Sensitivity > MaxSensitivity {
		c.Sensitivity = MaxSensitivity
	}

	if c.DwellDuration <= 0 {
		c.DwellDuration = DefaultDwellDuration
	}

	if !finite(c.SmoothingFactor) || c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		c.SmoothingFactor = DefaultSmoothingFactor
	}

	if !finite(c.CalibrationMargin) || c.CalibrationMargin < 0 || c.CalibrationMargin >= 0.5 {
		c.CalibrationMargin = DefaultCalibrationMargin
	}

	if !finite(c.MinCalibrationRange) || c.MinCalibrationRange <= 0 || c.MinCalibrationRange > 1 {
		c.MinCalibrationRange = DefaultMinCalibrationRange
	}

	if c.CalibrationIdle <= 0 {
		c.CalibrationIdle = DefaultCalibrationIdle
	}

	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}

	return c
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NormalizeGestureName folds a gesture label into a comparison key.
// "Pointing Up", "pointing-up" and "POINTING_UP" all normalize to "POINTING_UP".
func NormalizeGestureName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		pendingSep = true
	}

	return b.String()
}
