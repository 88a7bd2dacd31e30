package source

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"github.com/ayusman/dwellpoint/internal/capture"
	"github.com/ayusman/dwellpoint/internal/detector"
	"github.com/ayusman/dwellpoint/internal/gesture"
	"github.com/ayusman/dwellpoint/internal/pointer"
)

// Frame rate defaults. Detection runs at every rate; motion only decides
// how often frames are read.
const (
	DefaultActiveFPS = 15
	DefaultIdleFPS   = 5
	DefaultIdleAfter = 2 * time.Second
)

// FrameConfig tunes the camera pipeline.
type FrameConfig struct {
	ActiveFPS       int
	IdleFPS         int
	IdleAfter       time.Duration
	MotionThreshold float64
}

// DefaultFrameConfig returns a FrameConfig with sensible default values.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		ActiveFPS:       DefaultActiveFPS,
		IdleFPS:         DefaultIdleFPS,
		IdleAfter:       DefaultIdleAfter,
		MotionThreshold: capture.DefaultMotionThreshold,
	}
}

func (c FrameConfig) sanitize() FrameConfig {
	def := DefaultFrameConfig()
	if c.ActiveFPS <= 0 {
		c.ActiveFPS = def.ActiveFPS
	}
	if c.IdleFPS <= 0 || c.IdleFPS > c.ActiveFPS {
		c.IdleFPS = min(def.IdleFPS, c.ActiveFPS)
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = def.IdleAfter
	}
	if c.MotionThreshold <= 0 {
		c.MotionThreshold = def.MotionThreshold
	}
	return c
}

// FrameSource reads camera frames, detects the first hand and publishes a
// pointer.Sample for every frame.
type FrameSource struct {
	camera     capture.Camera
	detector   detector.Detector
	classifier *gesture.Classifier
	motion     *capture.MotionMeter
	feed       *SampleFeed
	preview    Feed[[]byte]
	rate       *rateGovernor

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewFrameSource creates a FrameSource publishing to feed.
func NewFrameSource(cam capture.Camera, det detector.Detector, feed *SampleFeed, cfg FrameConfig) *FrameSource {
	cfg = cfg.sanitize()
	return &FrameSource{
		camera:     cam,
		detector:   det,
		classifier: gesture.NewClassifier(),
		motion:     capture.NewMotionMeter(cfg.MotionThreshold),
		feed:       feed,
		rate:       newRateGovernor(clock.New(), cfg),
	}
}

// Start opens the camera and begins the capture loop.
func (s *FrameSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.camera == nil || s.detector == nil {
		return errors.New("frame source needs a camera and a detector")
	}
	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	s.camera.SetFPS(s.rate.fps())

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true

	go s.loop(s.stopCh, s.doneCh)
	log.Println("Frame source started")

	return nil
}

// Stop ends the capture loop and closes the camera. The detector is owned
// by the caller and stays open.
func (s *FrameSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.motion.Close()

	if err := s.camera.Close(); err != nil {
		return fmt.Errorf("close camera: %w", err)
	}
	log.Println("Frame source stopped")
	return nil
}

// Running reports whether the capture loop is active.
func (s *FrameSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *FrameSource) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.rate.interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame, err := s.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			_, moving := s.motion.Measure(frame)
			if fps, changed := s.rate.observe(moving); changed {
				s.camera.SetFPS(fps)
				ticker.Reset(s.rate.interval())
			}

			s.publishPreview(frame)

			sample, err := s.Process(frame)
			frame.Close()
			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}
			s.feed.Publish(sample)
		}
	}
}

// Preview delivers each captured frame as JPEG. Frames are only encoded
// while at least one subscriber is registered.
func (s *FrameSource) Preview() *Feed[[]byte] {
	return &s.preview
}

func (s *FrameSource) publishPreview(frame *gocv.Mat) {
	if s.preview.Len() == 0 {
		return
	}
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		log.Printf("Error encoding preview frame: %v", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()
	s.preview.Publish(data)
}

// Process runs detection on one frame and returns the resulting sample.
// Only the first hand is used. A frame without a hand yields a sample with
// no fingertip, which hides the pointer.
func (s *FrameSource) Process(frame *gocv.Mat) (pointer.Sample, error) {
	hands, err := s.detector.Detect(frame)
	if err != nil {
		return pointer.Sample{}, err
	}
	return SampleFromHands(s.classifier, hands), nil
}

// SampleFromHands converts detector output into a pointer sample.
func SampleFromHands(c *gesture.Classifier, hands []detector.HandLandmarks) pointer.Sample {
	if len(hands) == 0 || !hands[0].Valid() {
		return pointer.Sample{}
	}

	hand := hands[0]
	tip := hand.Fingertip()
	return pointer.Sample{
		Fingertip: &pointer.Point{X: tip.X, Y: tip.Y},
		Gestures:  c.Labels(&hand),
	}
}

// rateGovernor switches between the idle and active frame rates. Motion
// selects the active rate; IdleAfter without motion drops back to idle.
type rateGovernor struct {
	clock      clock.Clock
	cfg        FrameConfig
	active     bool
	lastMotion time.Time
}

func newRateGovernor(c clock.Clock, cfg FrameConfig) *rateGovernor {
	return &rateGovernor{clock: c, cfg: cfg.sanitize(), lastMotion: c.Now()}
}

// observe records one frame's motion verdict and returns the frame rate,
// reporting whether it changed.
func (g *rateGovernor) observe(moving bool) (int, bool) {
	now := g.clock.Now()

	if moving {
		g.lastMotion = now
		if !g.active {
			g.active = true
			log.Println("Switched to active frame rate")
			return g.fps(), true
		}
		return g.fps(), false
	}

	if g.active && now.Sub(g.lastMotion) > g.cfg.IdleAfter {
		g.active = false
		log.Println("Switched to idle frame rate")
		return g.fps(), true
	}
	return g.fps(), false
}

func (g *rateGovernor) fps() int {
	if g.active {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

func (g *rateGovernor) interval() time.Duration {
	return time.Second / time.Duration(g.fps())
}
