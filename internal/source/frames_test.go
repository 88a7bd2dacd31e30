package source

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/dwellpoint/internal/capture"
	"github.com/ayusman/dwellpoint/internal/detector"
	"github.com/ayusman/dwellpoint/internal/gesture"
	"github.com/ayusman/dwellpoint/internal/pointer"
)

func TestSampleFromHands(t *testing.T) {
	c := gesture.NewClassifier()

	t.Run("no hands", func(t *testing.T) {
		s := SampleFromHands(c, nil)
		if s.Fingertip != nil || len(s.Gestures) != 0 {
			t.Errorf("expected empty sample, got %+v", s)
		}
	})

	t.Run("first hand wins", func(t *testing.T) {
		s := SampleFromHands(c, []detector.HandLandmarks{
			detector.PointingAt(0.3, 0.4),
			detector.OpenPalmLandmarks(),
		})
		if s.Fingertip == nil {
			t.Fatal("expected fingertip")
		}
		if math.Abs(s.Fingertip.X-0.3) > 1e-9 || math.Abs(s.Fingertip.Y-0.4) > 1e-9 {
			t.Errorf("expected fingertip (0.3,0.4), got %+v", *s.Fingertip)
		}
		if len(s.Gestures) != 1 || s.Gestures[0] != gesture.PointingUp {
			t.Errorf("expected Pointing_Up, got %v", s.Gestures)
		}
	})

	t.Run("backend labels kept", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		hand.Gestures = []string{"Victory", "Open_Palm"}

		s := SampleFromHands(c, []detector.HandLandmarks{hand})
		if len(s.Gestures) != 2 || s.Gestures[0] != "Victory" {
			t.Errorf("expected backend labels, got %v", s.Gestures)
		}
	})

	t.Run("invalid hand treated as missing", func(t *testing.T) {
		hand := detector.PointingUpLandmarks()
		hand.Points[detector.IndexTip].X = math.NaN()

		if s := SampleFromHands(c, []detector.HandLandmarks{hand}); s.Fingertip != nil {
			t.Errorf("expected no fingertip, got %+v", *s.Fingertip)
		}
	})
}

func TestFrameSource_Process(t *testing.T) {
	det := detector.NewMockDetector()
	src := NewFrameSource(capture.NewMockCamera(64, 48), det, NewSampleFeed(), DefaultFrameConfig())

	det.SetHands(detector.PointingAt(0.6, 0.2))
	s, err := src.Process(nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if s.Fingertip == nil || math.Abs(s.Fingertip.X-0.6) > 1e-9 {
		t.Errorf("unexpected sample %+v", s)
	}

	det.SetError(errors.New("backend crashed"))
	if _, err := src.Process(nil); err == nil {
		t.Error("expected detector error to propagate")
	}
}

func TestFrameSource_StartRequiresDependencies(t *testing.T) {
	src := NewFrameSource(nil, nil, NewSampleFeed(), DefaultFrameConfig())
	if err := src.Start(); err == nil {
		t.Error("expected Start to fail without camera and detector")
	}
	if err := src.Stop(); err != nil {
		t.Errorf("Stop on a stopped source should be a no-op, got %v", err)
	}
}

func TestFrameSource_PublishesSamples(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	cam := capture.NewMockCamera(64, 48)
	det := detector.NewMockDetector()
	det.SetHands(detector.PointingAt(0.5, 0.5))
	feed := NewSampleFeed()

	got := make(chan pointer.Sample, 16)
	unsub := feed.SubscribeSamples(func(s pointer.Sample) {
		select {
		case got <- s:
		default:
		}
	})
	defer unsub()

	cfg := DefaultFrameConfig()
	cfg.IdleFPS = 20
	cfg.ActiveFPS = 20
	src := NewFrameSource(cam, det, feed, cfg)

	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer src.Stop()

	select {
	case s := <-got:
		if s.Fingertip == nil || len(s.Gestures) == 0 {
			t.Errorf("expected pointing sample, got %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sample published within 2s")
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if cam.IsOpen() {
		t.Error("expected camera closed after Stop")
	}
	if src.Running() {
		t.Error("expected source stopped")
	}
}

func TestRateGovernor(t *testing.T) {
	mock := clock.NewMock()
	cfg := FrameConfig{ActiveFPS: 15, IdleFPS: 5, IdleAfter: 2 * time.Second}
	g := newRateGovernor(mock, cfg)

	if g.fps() != 5 {
		t.Fatalf("expected to start idle at 5 fps, got %d", g.fps())
	}

	if fps, changed := g.observe(true); !changed || fps != 15 {
		t.Errorf("motion should switch to 15 fps, got %d changed=%v", fps, changed)
	}
	if _, changed := g.observe(true); changed {
		t.Error("continued motion should not report a change")
	}

	mock.Add(1500 * time.Millisecond)
	if _, changed := g.observe(false); changed {
		t.Error("should stay active within IdleAfter")
	}

	mock.Add(time.Second)
	if fps, changed := g.observe(false); !changed || fps != 5 {
		t.Errorf("expected idle after 2.5s still, got %d changed=%v", fps, changed)
	}
	if g.interval() != 200*time.Millisecond {
		t.Errorf("expected 200ms idle interval, got %v", g.interval())
	}
}

func TestFrameConfig_Sanitize(t *testing.T) {
	got := FrameConfig{ActiveFPS: 10, IdleFPS: 30}.sanitize()

	if got.IdleFPS > got.ActiveFPS {
		t.Errorf("idle fps %d must not exceed active fps %d", got.IdleFPS, got.ActiveFPS)
	}
	if got.IdleAfter != DefaultIdleAfter || got.MotionThreshold != capture.DefaultMotionThreshold {
		t.Errorf("expected defaults filled, got %+v", got)
	}
}
