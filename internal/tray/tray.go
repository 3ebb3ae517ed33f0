// Package tray provides a system tray control for the mudra pipeline.
package tray

import (
	"context"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/gesture"
)

// Controller is the part of the session controller the tray drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	Slots() gesture.Slots
}

// Tray shows the processing state and the two gesture slots, and toggles
// processing on click.
type Tray struct {
	ctrl    Controller
	log     *logrus.Entry
	refresh time.Duration

	mu     sync.RWMutex
	onOpen func()
	onQuit func()

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuPrimary   *systray.MenuItem
	menuSecondary *systray.MenuItem

	done chan struct{}
}

// New creates a tray bound to ctrl.
func New(ctrl Controller, log *logrus.Entry) *Tray {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Tray{
		ctrl:    ctrl,
		log:     log.WithField("component", "tray"),
		refresh: 250 * time.Millisecond,
		done:    make(chan struct{}),
	}
}

// OnOpen sets the callback for the "Open Viewer" menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra live cutouts")

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.ctrl.Running()), "Start or stop processing")
	systray.AddSeparator()

	t.menuPrimary = systray.AddMenuItem(slotTitle("Primary", gesture.NoGesture), "Gesture of the first hand")
	t.menuPrimary.Disable()
	t.menuSecondary = systray.AddMenuItem(slotTitle("Secondary", gesture.NoGesture), "Gesture of the second hand")
	t.menuSecondary.Disable()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go t.watch()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	close(t.done)
}

// watch mirrors the controller into the menu until the tray exits.
func (t *Tray) watch() {
	ticker := time.NewTicker(t.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.render()
		}
	}
}

func (t *Tray) render() {
	slots := gesture.EmptySlots()
	running := t.ctrl.Running()
	if running {
		slots = t.ctrl.Slots()
	}

	t.menuToggle.SetTitle(toggleTitle(running))
	t.menuPrimary.SetTitle(slotTitle("Primary", slots.Primary))
	t.menuSecondary.SetTitle(slotTitle("Secondary", slots.Secondary))
}

// handleToggle starts or stops processing. Start can block on model
// loading, so it runs off the menu goroutine.
func (t *Tray) handleToggle() {
	if t.ctrl.Running() {
		if err := t.ctrl.Stop(); err != nil {
			t.log.WithError(err).Warn("Stop reported errors")
		}
		t.render()
		return
	}

	t.menuToggle.SetTitle("◌ Starting...")
	go func() {
		if err := t.ctrl.Start(context.Background()); err != nil {
			t.log.WithError(err).Error("Failed to start processing")
		}
		t.render()
	}()
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func toggleTitle(running bool) string {
	if running {
		return "● Processing"
	}
	return "○ Stopped"
}

func slotTitle(name, label string) string {
	if label == "" || label == gesture.NoGesture {
		label = "none"
	}
	return name + ": " + label
}
