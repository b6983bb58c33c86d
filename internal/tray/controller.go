// Package tray provides the persistent tray affordance: open the window,
// put the backend to sleep, and quit. It holds no state beyond its menu.
package tray

import (
	"fmt"

	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/supervisor"
)

// Window is the part of the window controller the tray drives.
type Window interface {
	Open()
	Quit()
}

// Backend is the part of the supervisor the tray drives.
type Backend interface {
	Start()
	Stop() <-chan error
	Status() supervisor.Status
}

// Actions are the callbacks a Menu invokes.
type Actions struct {
	Open     func()
	Wake     func()
	Sleep    func()
	Quit     func()
	Activate func() // icon double-click / tap
}

// Menu renders the tray. SystrayMenu is the native implementation.
type Menu interface {
	Run(actions Actions)
	SetTooltip(text string)
	Quit()
}

// Controller maps tray actions onto the window and backend.
type Controller struct {
	window    Window
	backend   Backend
	terminate func()
	logger    *logging.Logger
	menu      Menu
}

// NewController creates a tray controller. terminate ends the application
// after the window has entered quitting.
func NewController(window Window, backend Backend, terminate func(), logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Controller{
		window:    window,
		backend:   backend,
		terminate: terminate,
		logger:    logger,
	}
}

// Attach starts menu and keeps its tooltip in sync with backend exits.
func (c *Controller) Attach(menu Menu, sup *supervisor.Supervisor) {
	c.menu = menu
	if sup != nil {
		sup.OnExit(c.BackendExited)
	}
	menu.Run(Actions{
		Open:     c.Open,
		Wake:     c.Wake,
		Sleep:    c.Sleep,
		Quit:     c.Quit,
		Activate: c.Activate,
	})
	c.refreshTooltip()
}

// Open shows and focuses the main window.
func (c *Controller) Open() {
	c.logger.Debug().Msg("Tray: open")
	c.window.Open()
}

// Activate handles a double activation of the tray icon. It is Open.
func (c *Controller) Activate() {
	c.Open()
}

// Wake starts the backend if it is not running.
func (c *Controller) Wake() {
	c.logger.Info().Msg("Tray: wake backend")
	c.backend.Start()
	c.refreshTooltip()
}

// Sleep stops the backend without quitting. The window stays as it is.
func (c *Controller) Sleep() {
	c.logger.Info().Msg("Tray: sleep backend")
	c.backend.Stop()
	c.refreshTooltip()
}

// Quit enters quitting (which stops the backend) and terminates.
func (c *Controller) Quit() {
	c.logger.Info().Msg("Tray: quit")
	c.window.Quit()
	if c.menu != nil {
		c.menu.Quit()
	}
	if c.terminate != nil {
		c.terminate()
	}
}

// BackendExited refreshes the tooltip after a backend generation ends.
func (c *Controller) BackendExited(info supervisor.ExitInfo) {
	if c.menu == nil {
		return
	}
	// A newer generation may already be running.
	if st := c.backend.Status(); st.Running {
		c.menu.SetTooltip(Tooltip(st))
		return
	}
	c.menu.SetTooltip(truncate(fmt.Sprintf("%s: backend stopped (exit %d)", constants.AppName, info.Code)))
}

func (c *Controller) refreshTooltip() {
	if c.menu == nil {
		return
	}
	c.menu.SetTooltip(Tooltip(c.backend.Status()))
}

// Tooltip renders the backend status for the tray icon.
func Tooltip(st supervisor.Status) string {
	switch {
	case st.Running:
		return truncate(fmt.Sprintf("%s: backend running (pid %d)", constants.AppName, st.PID))
	case st.LastError != "":
		return truncate(fmt.Sprintf("%s: backend failed: %s", constants.AppName, st.LastError))
	case st.LastExit != nil:
		return truncate(fmt.Sprintf("%s: backend stopped (exit %d)", constants.AppName, st.LastExit.Code))
	default:
		return truncate(fmt.Sprintf("%s: backend sleeping", constants.AppName))
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= constants.TrayTooltipMaxLen {
		return s
	}
	return string(r[:constants.TrayTooltipMaxLen-3]) + "..."
}
