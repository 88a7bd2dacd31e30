// Package config loads the dwellpoint YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/dwellpoint/internal/capture"
	"github.com/ayusman/dwellpoint/internal/detector"
	"github.com/ayusman/dwellpoint/internal/pointer"
	"github.com/ayusman/dwellpoint/internal/source"
)

// DefaultAddr is the address the HTTP server listens on.
const DefaultAddr = "localhost:8765"

// DefaultHistoryRetention is how long activation history is kept.
const DefaultHistoryRetention = 30 * 24 * time.Hour

// Duration is a time.Duration written as a Go duration string ("1500ms").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root of the configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Pointer  PointerConfig  `yaml:"pointer"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Tray     TrayConfig     `yaml:"tray"`
}

// ServerConfig configures the HTTP and WebSocket bridge.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"staticDir,omitempty"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path             string   `yaml:"path"`
	HistoryRetention Duration `yaml:"historyRetention"`
}

// PointerConfig mirrors pointer.Config in file form.
type PointerConfig struct {
	Gesture             string   `yaml:"gesture"`
	Mirrored            bool     `yaml:"mirrored"`
	Sensitivity         float64  `yaml:"sensitivity"`
	Dwell               Duration `yaml:"dwell"`
	Smoothing           float64  `yaml:"smoothing"`
	CalibrationMargin   float64  `yaml:"calibrationMargin"`
	MinCalibrationRange float64  `yaml:"minCalibrationRange"`
	CalibrationIdle     Duration `yaml:"calibrationIdle"`
	FrameInterval       Duration `yaml:"frameInterval"`
}

// CameraConfig configures the optional local camera frame source.
type CameraConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Device          int      `yaml:"device"`
	Width           int      `yaml:"width"`
	Height          int      `yaml:"height"`
	ActiveFPS       int      `yaml:"activeFPS"`
	IdleFPS         int      `yaml:"idleFPS"`
	IdleAfter       Duration `yaml:"idleAfter"`
	MotionThreshold float64  `yaml:"motionThreshold"`
}

// DetectorConfig configures the MediaPipe hand detector.
type DetectorConfig struct {
	Script        string   `yaml:"script"`
	Python        string   `yaml:"python"`
	MaxHands      int      `yaml:"maxHands"`
	MinConfidence float64  `yaml:"minConfidence"`
	IdleTimeout   Duration `yaml:"idleTimeout"`
}

// TrayConfig configures the system tray menu.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	pc := pointer.DefaultConfig()
	fc := source.DefaultFrameConfig()
	co := capture.DefaultOptions()
	dc := detector.DefaultConfig()

	return Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Store: StoreConfig{
			Path:             DefaultDBPath(),
			HistoryRetention: Duration(DefaultHistoryRetention),
		},
		Pointer: PointerConfig{
			Gesture:             pc.PointerGesture,
			Mirrored:            pc.Mirrored,
			Sensitivity:         pc.Sensitivity,
			Dwell:               Duration(pc.DwellDuration),
			Smoothing:           pc.SmoothingFactor,
			CalibrationMargin:   pc.CalibrationMargin,
			MinCalibrationRange: pc.MinCalibrationRange,
			CalibrationIdle:     Duration(pc.CalibrationIdle),
			FrameInterval:       Duration(pc.FrameInterval),
		},
		Camera: CameraConfig{
			Device:          co.DeviceID,
			Width:           co.Width,
			Height:          co.Height,
			ActiveFPS:       fc.ActiveFPS,
			IdleFPS:         fc.IdleFPS,
			IdleAfter:       Duration(fc.IdleAfter),
			MotionThreshold: fc.MotionThreshold,
		},
		Detector: DetectorConfig{
			MaxHands:      dc.MaxHands,
			MinConfidence: dc.MinConfidence,
			IdleTimeout:   Duration(dc.IdleTimeout),
		},
	}
}

// DefaultDBPath returns ~/.dwellpoint/dwellpoint.db, or a relative path
// when the home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dwellpoint", "dwellpoint.db")
	}
	return filepath.Join(home, ".dwellpoint", "dwellpoint.db")
}

// Load reads the file at path over the defaults. An empty path or a
// missing file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Store.Path = ExpandHome(cfg.Store.Path)
	if cfg.Server.StaticDir != "" {
		cfg.Server.StaticDir = ExpandHome(cfg.Server.StaticDir)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	path = ExpandHome(path)
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// PointerConfig converts the pointer section to a pointer.Config.
// The engine sanitizes it further.
func (c Config) PointerConfig() pointer.Config {
	p := c.Pointer
	return pointer.Config{
		PointerGesture:      p.Gesture,
		Mirrored:            p.Mirrored,
		Sensitivity:         p.Sensitivity,
		DwellDuration:       p.Dwell.Std(),
		SmoothingFactor:     p.Smoothing,
		CalibrationMargin:   p.CalibrationMargin,
		MinCalibrationRange: p.MinCalibrationRange,
		CalibrationIdle:     p.CalibrationIdle.Std(),
		FrameInterval:       p.FrameInterval.Std(),
	}
}

// FrameConfig converts the camera section to a source.FrameConfig.
func (c Config) FrameConfig() source.FrameConfig {
	return source.FrameConfig{
		ActiveFPS:       c.Camera.ActiveFPS,
		IdleFPS:         c.Camera.IdleFPS,
		IdleAfter:       c.Camera.IdleAfter.Std(),
		MotionThreshold: c.Camera.MotionThreshold,
	}
}

// CameraOptions converts the camera section to capture.Options.
func (c Config) CameraOptions() capture.Options {
	return capture.Options{
		DeviceID: c.Camera.Device,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
		FPS:      c.Camera.ActiveFPS,
	}
}

// DetectorConfig converts the detector section to a detector.Config.
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:      c.Detector.MaxHands,
		MinConfidence: c.Detector.MinConfidence,
		ScriptPath:    ExpandHome(c.Detector.Script),
		PythonPath:    ExpandHome(c.Detector.Python),
		IdleTimeout:   c.Detector.IdleTimeout.Std(),
	}
}
