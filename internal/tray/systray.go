package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"fyne.io/systray"

	"github.com/auroradesk/aurora-shell/internal/constants"
)

// SystrayMenu is the native tray on fyne.io/systray. The systray loop runs
// on its own goroutine next to the webview host.
type SystrayMenu struct {
	mu    sync.Mutex
	ready bool
	tip   string
	once  sync.Once
}

// NewSystrayMenu creates the native tray menu.
func NewSystrayMenu() *SystrayMenu {
	return &SystrayMenu{}
}

// Run starts the systray loop and dispatches clicks to actions.
func (m *SystrayMenu) Run(actions Actions) {
	go systray.Run(func() { m.onReady(actions) }, func() {})
}

func (m *SystrayMenu) onReady(actions Actions) {
	systray.SetIcon(iconPNG())
	systray.SetTitle(constants.AppName)

	m.mu.Lock()
	m.ready = true
	tip := m.tip
	m.mu.Unlock()
	if tip == "" {
		tip = constants.AppName
	}
	systray.SetTooltip(tip)

	mOpen := systray.AddMenuItem("Open "+constants.AppName, "Show the main window")
	systray.AddSeparator()
	mWake := systray.AddMenuItem("Wake Backend", "Start the backend if it is asleep")
	mSleep := systray.AddMenuItem("Sleep", "Stop the backend and keep the app open")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Stop the backend and quit")

	if actions.Activate != nil {
		systray.SetOnTapped(actions.Activate)
	}

	go func() {
		for {
			select {
			case <-mOpen.ClickedCh:
				call(actions.Open)
			case <-mWake.ClickedCh:
				call(actions.Wake)
			case <-mSleep.ClickedCh:
				call(actions.Sleep)
			case <-mQuit.ClickedCh:
				call(actions.Quit)
				return
			}
		}
	}()
}

// SetTooltip updates the icon tooltip. Calls before the tray is ready are
// applied once it is.
func (m *SystrayMenu) SetTooltip(text string) {
	m.mu.Lock()
	m.tip = text
	ready := m.ready
	m.mu.Unlock()
	if ready {
		systray.SetTooltip(text)
	}
}

// Quit removes the tray icon.
func (m *SystrayMenu) Quit() {
	m.once.Do(systray.Quit)
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// iconPNG draws the tray icon: a filled disc in the brand color.
func iconPNG() []byte {
	const size = 32
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := color.RGBA{R: 0x4f, G: 0x7c, B: 0xff, A: 0xff}
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= c*c {
				img.Set(x, y, fill)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
