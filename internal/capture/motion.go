package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel applied before differencing.
	blurKernel = 21

	// pixelDelta is the per-pixel intensity change counted as movement.
	pixelDelta = 25

	// DefaultMotionThreshold is the percentage of changed pixels that
	// counts as motion.
	DefaultMotionThreshold = 1.0
)

// MotionMeter measures how much of the image changed since the previous
// frame. It keeps one blurred grayscale baseline.
type MotionMeter struct {
	mu        sync.Mutex
	threshold float64
	baseline  gocv.Mat
	primed    bool
}

// NewMotionMeter creates a MotionMeter. Thresholds <= 0 use the default.
func NewMotionMeter(threshold float64) *MotionMeter {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionMeter{threshold: threshold, baseline: gocv.NewMat()}
}

// Measure returns the percentage of pixels that changed since the last
// frame and whether that exceeds the threshold. The first frame only sets
// the baseline and reports no motion.
func (m *MotionMeter) Measure(frame *gocv.Mat) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return 0, false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.baseline)
		m.primed = true
		return 0, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.baseline, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDelta, 255, gocv.ThresholdBinary)

	blurred.CopyTo(&m.baseline)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0, false
	}
	changed := float64(gocv.CountNonZero(mask)) / float64(total) * 100
	return changed, changed > m.threshold
}

// Threshold returns the motion threshold in percent.
func (m *MotionMeter) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Reset drops the baseline; the next frame primes it again.
func (m *MotionMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the baseline image.
func (m *MotionMeter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline.Close()
	m.baseline = gocv.NewMat()
	m.primed = false
}
