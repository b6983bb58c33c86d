// Package window holds the main window's visibility state machine. It is
// independent of the backend: closing the window hides it, and only Quit
// ends the application.
package window

import (
	"sync"

	"github.com/auroradesk/aurora-shell/internal/logging"
)

// State is the window's visibility.
type State int

const (
	Uninitialized State = iota
	Visible
	Hidden
)

func (s State) String() string {
	switch s {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	default:
		return "uninitialized"
	}
}

// Surface is the native window. The webview host implements it.
type Surface interface {
	Show()
	Hide()
	Focus()
}

// Stopper is called once when the application quits. The supervisor's Stop
// fits; its result channel is ignored.
type Stopper func()

// Controller drives a Surface. Safe for concurrent use from webview
// callbacks, the tray goroutine and signal handlers.
type Controller struct {
	logger      *logging.Logger
	stop        Stopper
	startHidden bool

	mu       sync.Mutex
	surface  Surface
	state    State
	quitting bool
	stopOnce sync.Once
}

// NewController creates a controller. surface may be nil until the webview
// exists; see Attach.
func NewController(surface Surface, stop Stopper, startHidden bool, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{
		logger:      logger,
		stop:        stop,
		startHidden: startHidden,
		surface:     surface,
		state:       Uninitialized,
	}
}

// Attach sets the surface once the native window has been constructed.
func (c *Controller) Attach(surface Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface = surface
}

// ContentReady is called when the window's content has finished loading.
// The window is constructed hidden and shown only now, unless configured
// to start in the tray.
func (c *Controller) ContentReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Uninitialized || c.quitting {
		return
	}
	if c.startHidden {
		c.transitionLocked(Hidden)
		return
	}
	if c.surface != nil {
		c.surface.Show()
	}
	c.transitionLocked(Visible)
}

// RequestClose handles the user closing the window. It returns true only
// when the application is quitting; otherwise the window is hidden and
// kept alive.
func (c *Controller) RequestClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quitting {
		return true
	}
	if c.surface != nil {
		c.surface.Hide()
	}
	c.transitionLocked(Hidden)
	return false
}

// Open shows and focuses the window. Used by the tray, double activation
// and second launches.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quitting {
		return
	}
	if c.surface != nil {
		c.surface.Show()
		c.surface.Focus()
	}
	c.transitionLocked(Visible)
}

// Quit marks the application as quitting and stops the backend. The stopper
// runs exactly once no matter how many paths reach Quit.
func (c *Controller) Quit() {
	c.mu.Lock()
	first := !c.quitting
	c.quitting = true
	c.mu.Unlock()

	if first {
		c.logger.Info().Msg("Quitting")
	}
	c.stopOnce.Do(func() {
		if c.stop != nil {
			c.stop()
		}
	})
}

// State returns the current visibility.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Quitting reports whether Quit has been called.
func (c *Controller) Quitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quitting
}

func (c *Controller) transitionLocked(next State) {
	if c.state == next {
		return
	}
	c.logger.Debug().Str("from", c.state.String()).Str("to", next.String()).Msg("Window state")
	c.state = next
}
