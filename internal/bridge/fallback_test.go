package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFallback(path string) *FallbackLogger {
	f := NewFallbackLogger(path)
	f.now = func() time.Time {
		return time.Date(2026, 10, 19, 12, 0, 0, 123_000_000, time.FixedZone("CEST", 2*3600))
	}
	return f
}

func TestFallbackLineFormat(t *testing.T) {
	f := fixedFallback("")

	tests := []struct {
		name    string
		message string
		detail  interface{}
		cause   error
		want    string
	}{
		{
			name:    "string detail with cause",
			message: "ui crashed",
			detail:  "view=eq",
			cause:   errors.New("connection refused"),
			want:    "2026-10-19T10:00:00.123Z ui crashed view=eq err=connection refused\n",
		},
		{
			name:    "structured detail",
			message: "render",
			detail:  map[string]int{"fps": 12},
			want:    "2026-10-19T10:00:00.123Z render {\"fps\":12}\n",
		},
		{
			name:    "nil detail",
			message: "idle",
			want:    "2026-10-19T10:00:00.123Z idle \n",
		},
		{
			name:    "newlines escaped",
			message: "stack\ntrace",
			detail:  "a\r\nb",
			cause:   errors.New("x\ny"),
			want:    "2026-10-19T10:00:00.123Z stack\\ntrace a\\nb err=x\\ny\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.formatLine(tt.message, tt.detail, tt.cause))
		})
	}
}

func TestFallbackAppendCreatesDirectoryAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "logs", "ui-fallback.log")
	f := fixedFallback(path)

	require.NoError(t, f.Append("first", nil, nil))
	require.NoError(t, f.Append("second", "d", errors.New("e")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "Z first "))
	assert.True(t, strings.HasSuffix(lines[1], "Z second d err=e"))
}

func TestFallbackWithoutPath(t *testing.T) {
	var f *FallbackLogger
	assert.Error(t, f.Append("m", nil, nil))
	assert.Error(t, NewFallbackLogger("").Append("m", nil, nil))
}
