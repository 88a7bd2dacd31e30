// Package app wires the dwellpoint components together: the pointer
// engine, its sample and cooldown feeds, the browser bridge, persistence,
// the optional camera pipeline and the tray.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/dwellpoint/internal/capture"
	"github.com/ayusman/dwellpoint/internal/config"
	"github.com/ayusman/dwellpoint/internal/detector"
	"github.com/ayusman/dwellpoint/internal/pointer"
	"github.com/ayusman/dwellpoint/internal/server"
	"github.com/ayusman/dwellpoint/internal/source"
	"github.com/ayusman/dwellpoint/internal/store"
	"github.com/ayusman/dwellpoint/internal/tray"
)

// Options configures an App. Only Config is required; the remaining
// fields replace the components New would otherwise build.
type Options struct {
	Config config.Config

	// Store is used instead of opening Config.Store.Path. The caller keeps
	// ownership and closes it.
	Store *store.Store

	// Camera and Detector replace the device camera and the MediaPipe
	// detector when Config.Camera.Enabled is set.
	Camera   capture.Camera
	Detector detector.Detector

	// Clock drives dwell and calibration timers.
	Clock clock.Clock
}

// App is the running dwellpoint application.
type App struct {
	config config.Config

	store     *store.Store
	ownsStore bool

	engine   *pointer.Engine
	hub      *server.Hub
	layout   *server.Layout
	samples  *source.SampleFeed
	cooldown *source.CooldownFeed
	frames   *source.FrameSource
	detector detector.Detector
	server   *server.Server
	tray     *tray.Tray

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// New builds an App from opts. It opens the store but starts nothing.
func New(opts Options) (*App, error) {
	cfg := opts.Config

	a := &App{
		config:   cfg,
		store:    opts.Store,
		hub:      server.NewHub(),
		layout:   server.NewLayout(),
		samples:  source.NewSampleFeed(),
		cooldown: source.NewCooldownFeed(),
	}

	if a.store == nil {
		st, err := store.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		a.store = st
		a.ownsStore = true
	}

	sinks := pointer.MultiSink{a.store.Activations(), a.hub}
	if cfg.Tray.Enabled {
		a.tray = tray.New()
		sinks = append(sinks, a.tray)
	}

	a.engine = pointer.New(cfg.PointerConfig(), pointer.Deps{
		Geometry:    a.layout,
		Samples:     a.samples,
		Suppression: a.cooldown,
		Preferences: a.store.Preferences(),
		Sink:        sinks,
		Presenter:   a.hub,
		Clock:       opts.Clock,
	})

	if cfg.Camera.Enabled {
		a.setupCamera(opts)
	}

	srvCfg := server.Config{
		StaticDir: cfg.Server.StaticDir,
		Engine:    a.engine,
		Store:     a.store,
		Hub:       a.hub,
		Layout:    a.layout,
		Samples:   a.samples,
		Cooldown:  a.cooldown,
	}
	if a.frames != nil {
		srvCfg.Preview = a.frames.Preview()
	}
	a.server = server.New(srvCfg)

	if a.tray != nil {
		a.tray.OnToggle(a.engine.SetEnabled)
		a.tray.OnMirror(a.engine.SetMirrored)
		a.tray.Sync(a.engine.State())
	}

	return a, nil
}

// setupCamera builds the frame source. Without a detector the camera is
// left off and samples come only from the browser.
func (a *App) setupCamera(opts Options) {
	det := opts.Detector
	if det == nil {
		mp, err := detector.NewMediaPipeDetector(a.config.DetectorConfig())
		if err != nil {
			if errors.Is(err, detector.ErrUnavailable) {
				log.Printf("MediaPipe not available (%v), camera input disabled", err)
			} else {
				log.Printf("Failed to create detector: %v", err)
			}
			return
		}
		log.Println("Using MediaPipe hand detection")
		det = mp
	}

	cam := opts.Camera
	if cam == nil {
		cam = capture.NewCamera(a.config.CameraOptions())
	}

	a.detector = det
	a.frames = source.NewFrameSource(cam, det, a.samples, a.config.FrameConfig())
}

// Start subscribes the engine, starts the render loop and, when
// configured, the camera. A camera that fails to open is logged and the
// app keeps running browser-only.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}

	a.pruneHistory()

	a.engine.Start()

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.engine.Run(runCtx)
	}()

	if a.frames != nil {
		if err := a.frames.Start(); err != nil {
			log.Printf("Camera input disabled: %v", err)
		}
	}

	a.running = true
	log.Println("Pointer engine started")
	return nil
}

// pruneHistory drops activations older than the configured retention.
func (a *App) pruneHistory() {
	retention := a.config.Store.HistoryRetention.Std()
	if retention <= 0 {
		return
	}
	n, err := a.store.Activations().Prune(time.Now().Add(-retention))
	if err != nil {
		log.Printf("Failed to prune activation history: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Pruned %d old activations", n)
	}
}

// Stop halts every component and releases resources. It is safe to call
// more than once.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frames != nil {
		if err := a.frames.Stop(); err != nil {
			log.Printf("Error stopping frame source: %v", err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
		a.detector = nil
	}

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.engine.Close()
	a.wg.Wait()
	a.hub.Close()

	if a.ownsStore && a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
		a.ownsStore = false
	}

	if a.running {
		log.Println("Pointer engine stopped")
	}
	a.running = false
}

// Serve runs the HTTP server on addr until ctx is done.
func (a *App) Serve(ctx context.Context, addr string) error {
	log.Printf("Listening on http://%s", addr)
	return a.server.ListenAndServe(ctx, addr)
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server
}

// Engine returns the pointer engine.
func (a *App) Engine() *pointer.Engine {
	return a.engine
}

// Store returns the store.
func (a *App) Store() *store.Store {
	return a.store
}

// Layout returns the geometry provider fed by the browser.
func (a *App) Layout() *server.Layout {
	return a.layout
}

// Cooldown returns the cooldown feed.
func (a *App) Cooldown() *source.CooldownFeed {
	return a.cooldown
}

// Tray returns the tray, or nil when it is disabled.
func (a *App) Tray() *tray.Tray {
	return a.tray
}

// CameraRunning reports whether the camera pipeline is producing samples.
func (a *App) CameraRunning() bool {
	return a.frames != nil && a.frames.Running()
}
