package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIProgressRendersDescription(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgress(&buf)

	p.Start(-1, "waiting for backend")
	p.Update(1)
	p.Finish()

	assert.Contains(t, buf.String(), "waiting for backend")
}

func TestCLIProgressError(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgress(&buf)

	p.Error(nil)
	assert.Empty(t, buf.String())

	p.Error(errors.New("boom"))
	assert.Contains(t, buf.String(), "Error: boom")
}

func TestCLIProgressBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgress(&buf)

	// No bar yet: these must not panic.
	p.Update(3)
	p.SetDescription("x")
	p.Finish()
	assert.Empty(t, buf.String())
}

func TestNoOpProgressSatisfiesReporter(t *testing.T) {
	var r Reporter = NewNoOpProgress()
	r.Start(10, "x")
	r.Update(5)
	r.SetDescription("y")
	r.Error(errors.New("ignored"))
	r.Finish()
}
