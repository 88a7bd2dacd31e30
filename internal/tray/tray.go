// Package tray provides the system tray menu for dwellpoint.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/dwellpoint/internal/pointer"
)

// Tray is the system tray menu. It shows whether the pointer is armed and
// mirrored, and the last activated target. It implements
// pointer.ActivationSink.
type Tray struct {
	onToggle   func(enabled bool)
	onMirror   func(mirrored bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	mirrored   bool
	last       string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuMirror *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a Tray showing the pointer as disabled and unmirrored.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when the enabled item is clicked.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMirror sets the callback run when the mirror item is clicked.
func (t *Tray) OnMirror(fn func(mirrored bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMirror = fn
}

// OnSettings sets the callback run when "Open in Browser" is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called and must run
// on the main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Dwellpoint")
	systray.SetTooltip("Dwellpoint hands-free pointer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(enabledTitle(t.enabled), "Arm or disarm the pointer")
	t.menuMirror = systray.AddMenuItemCheckbox("Mirror horizontally", "Flip the pointer for a front-facing camera", t.mirrored)
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last activated target")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open in Browser...", "Open the pointer page")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Dwellpoint")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuMirror.ClickedCh:
				t.handleMirror()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.refreshLocked()
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleMirror() {
	t.mu.Lock()
	t.mirrored = !t.mirrored
	mirrored := t.mirrored
	t.refreshLocked()
	callback := t.onMirror
	t.mu.Unlock()

	if callback != nil {
		callback(mirrored)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// Sync updates the menu from an engine snapshot without running callbacks.
func (t *Tray) Sync(s pointer.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = s.Enabled
	t.mirrored = s.Mirrored
	t.refreshLocked()
}

// Activate implements pointer.ActivationSink by showing the target as the
// last activation.
func (t *Tray) Activate(a pointer.Activation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = a.TargetID
	t.refreshLocked()
}

// State returns the enabled flag, the mirrored flag and the last
// activated target as currently shown.
func (t *Tray) State() (enabled, mirrored bool, last string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled, t.mirrored, t.last
}

// refreshLocked rewrites menu titles. Before Run the items do not exist
// and only the fields change.
func (t *Tray) refreshLocked() {
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(enabledTitle(t.enabled))
	}
	if t.menuMirror != nil {
		if t.mirrored {
			t.menuMirror.Check()
		} else {
			t.menuMirror.Uncheck()
		}
	}
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(t.last))
	}
}

func enabledTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(target string) string {
	if target == "" {
		return "Last: none"
	}
	return "Last: " + target
}
