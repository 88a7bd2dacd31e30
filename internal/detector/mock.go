package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns canned results. It is safe for concurrent use, so
// tests can change its output while a frame source is running.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a MockDetector that finds no hands.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned by Detect.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError makes Detect fail with err until it is cleared with nil.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the configured hands or error. The frame is ignored.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]HandLandmarks, len(m.hands))
	copy(out, m.hands)
	return out, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// curledFingers sets middle, ring and pinky folded toward the palm.
func curledFingers(lm *HandLandmarks) {
	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	lm.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	lm.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}
}

// tuckedThumb folds the thumb across the palm.
func tuckedThumb(lm *HandLandmarks) {
	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.71, Z: -0.01}
	lm.Points[ThumbIP] = Point3D{X: 0.56, Y: 0.66, Z: -0.02}
	lm.Points[ThumbTip] = Point3D{X: 0.54, Y: 0.69, Z: -0.03}
}

func curledIndex(lm *HandLandmarks) {
	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	lm.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	lm.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}
}

func rightHand() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}
	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}
	return lm
}

// PointingUpLandmarks returns a right hand with only the index finger
// raised. Its fingertip is at (0.55, 0.35).
func PointingUpLandmarks() HandLandmarks {
	lm := rightHand()
	tuckedThumb(&lm)

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.55, Y: 0.35, Z: 0.0}

	curledFingers(&lm)
	return lm
}

// PointingAt returns PointingUpLandmarks translated so the index fingertip
// lands on (x, y).
func PointingAt(x, y float64) HandLandmarks {
	lm := PointingUpLandmarks()
	dx := x - lm.Points[IndexTip].X
	dy := y - lm.Points[IndexTip].Y
	for i := range lm.Points {
		lm.Points[i].X += dx
		lm.Points[i].Y += dy
	}
	return lm
}

// VictoryLandmarks returns a right hand with index and middle fingers raised.
func VictoryLandmarks() HandLandmarks {
	lm := rightHand()
	tuckedThumb(&lm)
	curledFingers(&lm)

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.59, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.61, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	return lm
}

// ClosedFistLandmarks returns a right hand with every finger folded.
func ClosedFistLandmarks() HandLandmarks {
	lm := rightHand()
	tuckedThumb(&lm)
	curledIndex(&lm)
	curledFingers(&lm)
	return lm
}

// ThumbsUpLandmarks returns a right hand with the thumb raised and the
// fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	lm := rightHand()

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	curledIndex(&lm)
	curledFingers(&lm)
	return lm
}

// OpenPalmLandmarks returns a right hand with all fingers spread.
func OpenPalmLandmarks() HandLandmarks {
	lm := rightHand()

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	lm.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	lm.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	lm.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	lm.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	lm.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	lm.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	lm.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return lm
}
