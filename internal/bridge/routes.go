package bridge

import "net/http"

// Operation is one entry of the fixed route table. The UI can only reach
// the backend through these; there is no generic request capability.
type Operation struct {
	Name   string
	Method string
	Path   string
	Binary bool // response is raw bytes rather than JSON
}

// Idempotent reports whether the operation may be retried under the policy.
func (o Operation) Idempotent() bool {
	return o.Method == http.MethodGet
}

var (
	opPing          = Operation{Name: "ping", Method: http.MethodGet, Path: "/ping"}
	opWake          = Operation{Name: "wake", Method: http.MethodPost, Path: "/wake"}
	opPower         = Operation{Name: "power", Method: http.MethodPost, Path: "/power"}
	opSelfCheck     = Operation{Name: "selfcheck", Method: http.MethodPost, Path: "/selfcheck"}
	opOpenLogs      = Operation{Name: "openLogs", Method: http.MethodGet, Path: "/logs/open"}
	opTailLogs      = Operation{Name: "tailLogs", Method: http.MethodGet, Path: "/logs/tail"}
	opOpenFile      = Operation{Name: "openFile", Method: http.MethodPost, Path: "/files/open"}
	opMemoryInfo    = Operation{Name: "memoryInfo", Method: http.MethodGet, Path: "/memory/info"}
	opReloadMemory  = Operation{Name: "reloadMemory", Method: http.MethodPost, Path: "/memory/reload"}
	opLocalAI       = Operation{Name: "localAI", Method: http.MethodPost, Path: "/ai/local"}
	opTts           = Operation{Name: "tts", Method: http.MethodPost, Path: "/tts", Binary: true}
	opGetSettings   = Operation{Name: "getSettings", Method: http.MethodGet, Path: "/settings/get"}
	opSetSettings   = Operation{Name: "setSettings", Method: http.MethodPost, Path: "/settings/set"}
	opOllamaStatus  = Operation{Name: "ollamaStatus", Method: http.MethodGet, Path: "/ollama/status"}
	opStartOllama   = Operation{Name: "startOllama", Method: http.MethodPost, Path: "/ollama/start"}
	opAudioHealth   = Operation{Name: "audioHealth", Method: http.MethodGet, Path: "/audio/api/health"}
	opAudioDevices  = Operation{Name: "audioDevices", Method: http.MethodGet, Path: "/audio/api/devices"}
	opAudioStatus   = Operation{Name: "audioStatus", Method: http.MethodGet, Path: "/audio/api/status"}
	opAudioSpectrum = Operation{Name: "audioSpectrum", Method: http.MethodGet, Path: "/audio/api/spectrum"}
	opAudioEQ       = Operation{Name: "audioEQ", Method: http.MethodGet, Path: "/audio/api/eq"}
	opActiveDevice  = Operation{Name: "setActiveDevice", Method: http.MethodPost, Path: "/audio/api/active-device"}
	opPlayTone      = Operation{Name: "playTone", Method: http.MethodPost, Path: "/audio/api/tone"}
	opStopAudio     = Operation{Name: "stopAudio", Method: http.MethodPost, Path: "/audio/api/stop"}
	opSetAudioEQ    = Operation{Name: "setAudioEQ", Method: http.MethodPost, Path: "/audio/api/eq"}
	opLogClient     = Operation{Name: "logClient", Method: http.MethodPost, Path: "/log/client"}
)

var routeTable = []Operation{
	opPing, opWake, opPower, opSelfCheck,
	opOpenLogs, opTailLogs, opOpenFile,
	opMemoryInfo, opReloadMemory,
	opLocalAI, opTts,
	opGetSettings, opSetSettings,
	opOllamaStatus, opStartOllama,
	opAudioHealth, opAudioDevices, opAudioStatus, opAudioSpectrum, opAudioEQ,
	opActiveDevice, opPlayTone, opStopAudio, opSetAudioEQ,
	opLogClient,
}

// Routes returns a copy of the route table.
func Routes() []Operation {
	out := make([]Operation, len(routeTable))
	copy(out, routeTable)
	return out
}

// Lookup finds an operation by name.
func Lookup(name string) (Operation, bool) {
	for _, op := range routeTable {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}
