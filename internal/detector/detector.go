package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when the detection backend cannot be started.
var ErrUnavailable = errors.New("detector unavailable")

// Detector finds hands in a frame.
type Detector interface {
	// Detect returns the hands found in frame, best first.
	// A frame without hands yields an empty slice and no error.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds detection options.
type Config struct {
	// MaxHands is passed to the backend. The pointer only uses the first hand.
	MaxHands int

	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64

	// ScriptPath overrides the MediaPipe service script location.
	ScriptPath string

	// PythonPath overrides the interpreter used to run the script.
	PythonPath string

	// IdleTimeout stops the backend process after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}
