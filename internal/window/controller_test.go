package window

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSurface) Show()  { f.record("show") }
func (f *fakeSurface) Hide()  { f.record("hide") }
func (f *fakeSurface) Focus() { f.record("focus") }

func (f *fakeSurface) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSurface) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestShownOnlyAfterContentReady(t *testing.T) {
	surface := &fakeSurface{}
	c := NewController(surface, nil, false, nil)

	assert.Equal(t, Uninitialized, c.State())
	assert.Empty(t, surface.Calls())

	c.ContentReady()
	assert.Equal(t, Visible, c.State())
	assert.Equal(t, []string{"show"}, surface.Calls())

	// A second ready signal (page reload) does not re-show.
	c.ContentReady()
	assert.Equal(t, []string{"show"}, surface.Calls())
}

func TestStartHidden(t *testing.T) {
	surface := &fakeSurface{}
	c := NewController(surface, nil, true, nil)

	c.ContentReady()
	assert.Equal(t, Hidden, c.State())
	assert.Empty(t, surface.Calls())

	c.Open()
	assert.Equal(t, Visible, c.State())
}

func TestCloseHidesAndOpenRestores(t *testing.T) {
	surface := &fakeSurface{}
	var stops atomic.Int32
	c := NewController(surface, func() { stops.Add(1) }, false, nil)
	c.ContentReady()

	allow := c.RequestClose()
	assert.False(t, allow, "close while not quitting must not destroy the window")
	assert.Equal(t, Hidden, c.State())
	assert.Equal(t, int32(0), stops.Load(), "closing the window leaves the backend running")

	c.Open()
	assert.Equal(t, Visible, c.State())
	assert.Equal(t, []string{"show", "hide", "show", "focus"}, surface.Calls())
}

func TestCloseAfterQuitIsAllowed(t *testing.T) {
	c := NewController(&fakeSurface{}, func() {}, false, nil)
	c.ContentReady()

	c.Quit()
	assert.True(t, c.Quitting())
	assert.True(t, c.RequestClose())
}

func TestQuitStopsExactlyOnce(t *testing.T) {
	var stops atomic.Int32
	c := NewController(&fakeSurface{}, func() { stops.Add(1) }, false, nil)
	c.ContentReady()

	// Tray quit, OS before-quit and a signal all race into Quit.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Quit()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), stops.Load())
}

func TestOpenIgnoredWhileQuitting(t *testing.T) {
	surface := &fakeSurface{}
	c := NewController(surface, nil, false, nil)
	c.ContentReady()
	c.Quit()

	c.Open()
	assert.Equal(t, []string{"show"}, surface.Calls())
}

func TestAttachLateSurface(t *testing.T) {
	c := NewController(nil, nil, false, nil)
	c.RequestClose()
	assert.Equal(t, Hidden, c.State())

	surface := &fakeSurface{}
	c.Attach(surface)
	c.Open()
	assert.Equal(t, []string{"show", "focus"}, surface.Calls())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "visible", Visible.String())
	assert.Equal(t, "hidden", Hidden.String())
}
