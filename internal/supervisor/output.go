package supervisor

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
)

// lineWriter splits one backend stream into lines, logs each as a
// structured event and appends it to the backend output log.
type lineWriter struct {
	stream     string
	generation uint64
	logger     *logging.Logger
	out        io.Writer // may be nil

	mu  sync.Mutex
	buf []byte
}

func newLineWriter(stream string, generation uint64, logger *logging.Logger, out io.Writer) *lineWriter {
	return &lineWriter{
		stream:     stream,
		generation: generation,
		logger:     logger,
		out:        out,
	}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	// Truncate very long lines to prevent memory issues
	if len(w.buf) > constants.BackendOutputMaxLine {
		w.emit(append(w.buf[:constants.BackendOutputMaxLine:constants.BackendOutputMaxLine], "... [truncated]"...))
		w.buf = nil
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(raw []byte) {
	line := string(bytes.TrimSuffix(raw, []byte("\r")))
	if line == "" {
		return
	}

	w.logger.Info().
		Str("stream", w.stream).
		Uint64("gen", w.generation).
		Msg(line)

	if w.out != nil {
		fmt.Fprintf(w.out, "%s [%s] gen=%d %s\n",
			time.Now().Format(time.RFC3339), w.stream, w.generation, line)
	}
}
