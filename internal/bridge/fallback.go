package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// fallbackTimeFormat is ISO 8601 in UTC with millisecond precision; the
// trailing Z is written literally.
const fallbackTimeFormat = "2006-01-02T15:04:05.000"

// FallbackLogger appends client log entries to a local file when the backend
// cannot take them. The file is opened per write; no handle is held.
type FallbackLogger struct {
	Path string

	// now is replaced in tests.
	now func() time.Time
	mu  sync.Mutex
}

// NewFallbackLogger returns a logger writing to path.
func NewFallbackLogger(path string) *FallbackLogger {
	return &FallbackLogger{Path: path, now: time.Now}
}

// Append writes exactly one line:
//
//	<timestamp>Z <message> <detail> [err=<error>]
func (f *FallbackLogger) Append(message string, detail interface{}, cause error) error {
	if f == nil || f.Path == "" {
		return fmt.Errorf("fallback log path not configured")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("failed to create fallback log directory: %w", err)
	}

	file, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open fallback log: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(f.formatLine(message, detail, cause)); err != nil {
		return fmt.Errorf("failed to write fallback log: %w", err)
	}
	return nil
}

func (f *FallbackLogger) formatLine(message string, detail interface{}, cause error) string {
	now := time.Now
	if f.now != nil {
		now = f.now
	}

	var b strings.Builder
	b.WriteString(now().UTC().Format(fallbackTimeFormat))
	b.WriteString("Z ")
	b.WriteString(oneLine(message))
	b.WriteByte(' ')
	b.WriteString(oneLine(formatDetail(detail)))
	if cause != nil {
		b.WriteString(" err=")
		b.WriteString(oneLine(cause.Error()))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatDetail(detail interface{}) string {
	switch v := detail.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.RawMessage:
		return string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

var lineEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`)

func oneLine(s string) string {
	return lineEscaper.Replace(s)
}
