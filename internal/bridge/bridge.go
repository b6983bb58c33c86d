package bridge

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"

	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/metrics"
)

// Payload is the JSON object a UI call forwards to the backend.
type Payload map[string]interface{}

// ClientLogEntry is a log line originating in the UI.
type ClientLogEntry struct {
	Level   string      `json:"level"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

// LogResult is returned by LogClient. It never carries a Go error.
type LogResult struct {
	OK       bool   `json:"ok"`
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// Bridge is the object bound into the webview. Every exported method is one
// entry of the route table; the UI has no other way to reach the backend.
type Bridge struct {
	client   *Client
	fallback *FallbackLogger
	logger   *logging.Logger
	metrics  *metrics.Metrics

	mu  sync.RWMutex
	ctx context.Context
}

// New creates a bridge. The root context is set later by Attach.
func New(client *Client, fallback *FallbackLogger, logger *logging.Logger, m *metrics.Metrics) *Bridge {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Bridge{
		client:   client,
		fallback: fallback,
		logger:   logger,
		metrics:  m,
		ctx:      context.Background(),
	}
}

// Attach sets the root context every call derives from. The host calls it
// once the webview runtime is up; cancelling ctx aborts in-flight calls.
// It is a function rather than a method so the webview cannot bind it.
func Attach(ctx context.Context, b *Bridge) {
	if ctx == nil {
		ctx = context.Background()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = ctx
}

func (b *Bridge) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bridge) call(op Operation, query url.Values, payload interface{}) (json.RawMessage, error) {
	data, err := b.client.Do(b.context(), op, query, payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

// optional drops a nil payload so the request goes out without a body.
func optional(p Payload) interface{} {
	if p == nil {
		return nil
	}
	return p
}

// Ping checks backend liveness.
func (b *Bridge) Ping() (json.RawMessage, error) {
	return b.call(opPing, nil, nil)
}

// Wake brings the backend out of its idle state.
func (b *Bridge) Wake(payload Payload) (json.RawMessage, error) {
	return b.call(opWake, nil, optional(payload))
}

// Power forwards a power action (sleep, restart) to the backend.
func (b *Bridge) Power(payload Payload) (json.RawMessage, error) {
	return b.call(opPower, nil, optional(payload))
}

// SelfCheck runs the backend diagnostics.
func (b *Bridge) SelfCheck(payload Payload) (json.RawMessage, error) {
	return b.call(opSelfCheck, nil, optional(payload))
}

// OpenLogs asks the backend to reveal its log directory.
func (b *Bridge) OpenLogs() (json.RawMessage, error) {
	return b.call(opOpenLogs, nil, nil)
}

// TailLogs returns the last lines of the backend log. lines <= 0 selects
// the default; values above the maximum are clamped.
func (b *Bridge) TailLogs(lines int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lines", strconv.Itoa(ClampTailLines(lines)))
	return b.call(opTailLogs, q, nil)
}

// OpenFile asks the backend to open path with the system handler.
func (b *Bridge) OpenFile(path string) (json.RawMessage, error) {
	return b.call(opOpenFile, nil, map[string]string{"path": path})
}

// MemoryInfo reports the backend memory store status.
func (b *Bridge) MemoryInfo() (json.RawMessage, error) {
	return b.call(opMemoryInfo, nil, nil)
}

// ReloadMemory asks the backend to reload its memory store from disk.
func (b *Bridge) ReloadMemory() (json.RawMessage, error) {
	return b.call(opReloadMemory, nil, nil)
}

// LocalAI sends a prompt to the local model.
func (b *Bridge) LocalAI(payload Payload) (json.RawMessage, error) {
	return b.call(opLocalAI, nil, optional(payload))
}

// Tts returns synthesized audio bytes as produced by the backend.
func (b *Bridge) Tts(payload Payload) ([]byte, error) {
	return b.client.Do(b.context(), opTts, nil, optional(payload))
}

// GetSettings returns the backend settings document.
func (b *Bridge) GetSettings() (json.RawMessage, error) {
	return b.call(opGetSettings, nil, nil)
}

// SetSettings replaces backend settings with payload.
func (b *Bridge) SetSettings(payload Payload) (json.RawMessage, error) {
	return b.call(opSetSettings, nil, optional(payload))
}

// OllamaStatus reports whether the Ollama runtime is up.
func (b *Bridge) OllamaStatus() (json.RawMessage, error) {
	return b.call(opOllamaStatus, nil, nil)
}

// StartOllama asks the backend to launch Ollama.
func (b *Bridge) StartOllama() (json.RawMessage, error) {
	return b.call(opStartOllama, nil, nil)
}

// AudioHealth reports audio subsystem health.
func (b *Bridge) AudioHealth() (json.RawMessage, error) {
	return b.call(opAudioHealth, nil, nil)
}

// AudioDevices lists input and output devices.
func (b *Bridge) AudioDevices() (json.RawMessage, error) {
	return b.call(opAudioDevices, nil, nil)
}

// AudioStatus returns the current playback and capture state.
func (b *Bridge) AudioStatus() (json.RawMessage, error) {
	return b.call(opAudioStatus, nil, nil)
}

// AudioSpectrum returns the latest spectrum frame.
func (b *Bridge) AudioSpectrum() (json.RawMessage, error) {
	return b.call(opAudioSpectrum, nil, nil)
}

// AudioEQ returns the equalizer bands.
func (b *Bridge) AudioEQ() (json.RawMessage, error) {
	return b.call(opAudioEQ, nil, nil)
}

// SetActiveDevice selects the audio device named in payload.
func (b *Bridge) SetActiveDevice(payload Payload) (json.RawMessage, error) {
	return b.call(opActiveDevice, nil, optional(payload))
}

// PlayTone plays a test tone.
func (b *Bridge) PlayTone(payload Payload) (json.RawMessage, error) {
	return b.call(opPlayTone, nil, optional(payload))
}

// StopAudio stops any playback.
func (b *Bridge) StopAudio() (json.RawMessage, error) {
	return b.call(opStopAudio, nil, nil)
}

// SetAudioEQ updates the equalizer bands.
func (b *Bridge) SetAudioEQ(payload Payload) (json.RawMessage, error) {
	return b.call(opSetAudioEQ, nil, optional(payload))
}

// LogClient forwards a UI log entry to the backend. It never returns an
// error: when delivery fails the entry goes to the fallback file instead.
func (b *Bridge) LogClient(entry ClientLogEntry) LogResult {
	_, err := b.client.Do(b.context(), opLogClient, nil, entry)
	if err == nil {
		return LogResult{OK: true}
	}

	if ferr := b.fallback.Append(entry.Message, entry.Detail, err); ferr != nil {
		b.logger.Error().
			Err(ferr).
			AnErr("cause", err).
			Str("message", entry.Message).
			Msg("Failed to write client log to fallback file")
		return LogResult{OK: false, Error: err.Error()}
	}

	b.metrics.FallbackWrite()
	return LogResult{OK: false, Fallback: true, Error: err.Error()}
}

// ClampTailLines applies the default and upper bound for TailLogs.
func ClampTailLines(lines int) int {
	switch {
	case lines <= 0:
		return constants.DefaultTailLines
	case lines > constants.MaxTailLines:
		return constants.MaxTailLines
	default:
		return lines
	}
}
