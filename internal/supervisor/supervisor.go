// Package supervisor owns the backend process: spawning it detached,
// capturing its output, and terminating it. At most one backend handle is
// live at a time and only the Supervisor reads or writes it.
package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/metrics"
	"github.com/auroradesk/aurora-shell/internal/pathutil"
)

// Spec describes how to launch the backend. The executable is invoked with
// Args followed by the single positional EntryPoint.
type Spec struct {
	Executable string
	EntryPoint string
	Args       []string
	WorkDir    string
	Env        []string // extra KEY=VALUE pairs on top of the shell's environment
}

// SpecFromConfig builds the launch spec from the [backend] section.
func SpecFromConfig(cfg *config.ShellConfig) Spec {
	exe := cfg.ResolveBackendExecutable()
	workDir := pathutil.MustExpand(cfg.Backend.WorkDir)
	if workDir == "" {
		workDir = filepath.Dir(exe)
	}
	return Spec{
		Executable: exe,
		EntryPoint: cfg.Backend.EntryPoint,
		WorkDir:    workDir,
	}
}

// Handle identifies the live backend process.
type Handle struct {
	PID        int       `json:"pid"`
	Generation uint64    `json:"generation"`
	StartedAt  time.Time `json:"started_at"`
}

// ExitInfo describes how a generation ended. Code is -1 for spawn failures
// and for processes killed by a signal.
type ExitInfo struct {
	Generation uint64    `json:"generation"`
	PID        int       `json:"pid"`
	Code       int       `json:"code"`
	At         time.Time `json:"at"`
	Requested  bool      `json:"requested"` // ended by Stop
	Err        error     `json:"-"`
}

// Status is a snapshot of supervisor state.
type Status struct {
	Running    bool      `json:"running"`
	PID        int       `json:"pid,omitempty"`
	Generation uint64    `json:"generation"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	Draining   []int     `json:"draining,omitempty"` // PIDs of stopped generations still exiting
	LastExit   *ExitInfo `json:"last_exit,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Options configures optional collaborators.
type Options struct {
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	OutputLog io.Writer // backend.log; nil disables the file copy
}

type process struct {
	Handle
	cmd    *exec.Cmd
	done   chan struct{} // closed after Wait returns and exit is recorded
	exit   ExitInfo
	stdout *lineWriter
	stderr *lineWriter
}

// Supervisor starts and stops the backend.
type Supervisor struct {
	spec      Spec
	logger    *logging.Logger
	metrics   *metrics.Metrics
	outputLog io.Writer

	mu         sync.Mutex
	current    *process
	generation uint64
	draining   map[uint64]*process
	lastExit   *ExitInfo
	lastError  string
	observers  []func(ExitInfo)

	// processAlive is replaced in tests.
	processAlive func(pid int) bool
}

// New creates a supervisor for spec. Nothing is spawned until Start.
func New(spec Spec, opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Supervisor{
		spec:         spec,
		logger:       logger,
		metrics:      opts.Metrics,
		outputLog:    opts.OutputLog,
		draining:     make(map[uint64]*process),
		processAlive: inProcessTable,
	}
}

// inProcessTable reports whether pid is still listed by the OS.
func inProcessTable(pid int) bool {
	p, err := ps.FindProcess(pid)
	return err == nil && p != nil
}

// OnExit registers fn to run after every generation ends, including spawn
// failures. fn runs on the supervisor's exit goroutine.
func (s *Supervisor) OnExit(fn func(ExitInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Start spawns the backend unless a handle already exists. Failures are
// logged and recorded in Status; they never propagate.
func (s *Supervisor) Start() {
	s.mu.Lock()

	if s.current != nil {
		pid := s.current.PID
		s.mu.Unlock()
		s.logger.Debug().Int("pid", pid).Msg("Backend already running, start ignored")
		return
	}

	s.detectOverlapLocked()

	s.generation++
	gen := s.generation
	proc := s.command(gen)

	if err := proc.cmd.Start(); err != nil {
		spawnErr := &SpawnError{Executable: s.spec.Executable, Err: err}
		info := ExitInfo{Generation: gen, Code: -1, At: time.Now(), Err: spawnErr}
		s.lastError = spawnErr.Error()
		s.lastExit = &info
		observers := s.snapshotObservers()
		s.mu.Unlock()

		s.metrics.SpawnFailed()
		s.logger.Error().
			Err(err).
			Str("executable", s.spec.Executable).
			Uint64("gen", gen).
			Msg("Backend spawn failed")
		notify(observers, info)
		return
	}

	proc.Handle = Handle{
		PID:        proc.cmd.Process.Pid,
		Generation: gen,
		StartedAt:  time.Now(),
	}
	s.current = proc
	s.lastError = ""
	s.mu.Unlock()

	s.metrics.SpawnSucceeded()
	s.logger.Info().
		Int("pid", proc.PID).
		Uint64("gen", gen).
		Str("executable", s.spec.Executable).
		Str("entry", s.spec.EntryPoint).
		Msg("Backend started")

	go s.waitForExit(proc)
}

// command builds the exec.Cmd for generation gen. Stdin is closed and
// stdout/stderr are captured, never inherited.
func (s *Supervisor) command(gen uint64) *process {
	args := append([]string{}, s.spec.Args...)
	if s.spec.EntryPoint != "" {
		args = append(args, s.spec.EntryPoint)
	}

	cmd := exec.Command(s.spec.Executable, args...)
	cmd.Dir = s.spec.WorkDir
	cmd.Env = append(os.Environ(), s.spec.Env...)
	cmd.Stdin = nil
	detach(cmd)

	backendLog := s.logger.Stage("backend")
	stdout := newLineWriter("stdout", gen, backendLog, s.outputLog)
	stderr := newLineWriter("stderr", gen, backendLog, s.outputLog)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Grandchildren holding the pipes open must not block Wait forever.
	cmd.WaitDelay = 2 * time.Second

	return &process{
		cmd:    cmd,
		done:   make(chan struct{}),
		stdout: stdout,
		stderr: stderr,
	}
}

// detectOverlapLocked reports a start racing a generation that Stop has
// released but that has not exited yet. The start proceeds either way.
func (s *Supervisor) detectOverlapLocked() {
	for gen, proc := range s.draining {
		if !s.processAlive(proc.PID) {
			continue
		}
		s.metrics.Overlap()
		s.logger.Warn().
			Int("stale_pid", proc.PID).
			Uint64("stale_gen", gen).
			Uint64("next_gen", s.generation+1).
			Msg("Stale backend overlap: previous generation still terminating")
	}
}

func (s *Supervisor) waitForExit(proc *process) {
	err := proc.cmd.Wait()
	proc.stdout.Flush()
	proc.stderr.Flush()

	info := ExitInfo{
		Generation: proc.Generation,
		PID:        proc.PID,
		Code:       exitCode(err),
		At:         time.Now(),
		Err:        err,
	}

	s.mu.Lock()
	if _, ok := s.draining[proc.Generation]; ok {
		info.Requested = true
		delete(s.draining, proc.Generation)
	}
	// A late exit of an older generation never clears a newer handle.
	if s.current != nil && s.current.Generation == proc.Generation {
		s.current = nil
		s.metrics.HandleCleared()
	}
	proc.exit = info
	s.lastExit = &info
	observers := s.snapshotObservers()
	s.mu.Unlock()

	close(proc.done)
	s.metrics.Exited(info.Code)

	event := s.logger.Info()
	if !info.Requested && info.Code != 0 {
		event = s.logger.Warn()
	}
	event.
		Int("pid", info.PID).
		Uint64("gen", info.Generation).
		Int("code", info.Code).
		Bool("requested", info.Requested).
		Msg("Backend exited")

	notify(observers, info)
}

// Stop releases the handle immediately and terminates the process in the
// background. It returns nil when there is nothing to stop; otherwise the
// channel yields the termination result once the process is gone. Callers
// may ignore it.
func (s *Supervisor) Stop() <-chan error {
	s.mu.Lock()
	proc := s.current
	if proc == nil {
		s.mu.Unlock()
		return nil
	}
	s.current = nil
	s.draining[proc.Generation] = proc
	s.mu.Unlock()

	s.metrics.HandleCleared()
	s.logger.Info().Int("pid", proc.PID).Uint64("gen", proc.Generation).Msg("Stopping backend")

	result := make(chan error, 1)
	go s.terminate(proc, result)
	return result
}

func (s *Supervisor) terminate(proc *process, result chan<- error) {
	if err := killTree(proc.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		termErr := &TerminationError{PID: proc.PID, Err: err}
		s.logger.Error().Err(err).Int("pid", proc.PID).Msg("Backend termination failed")
		s.mu.Lock()
		s.lastError = termErr.Error()
		s.mu.Unlock()
		result <- termErr
		return
	}
	<-proc.done
	result <- nil
}

// Shutdown stops the backend and blocks until it and every generation
// already being stopped have exited, or ctx is done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	result := s.Stop()

	s.mu.Lock()
	pending := make([]*process, 0, len(s.draining))
	for _, proc := range s.draining {
		pending = append(pending, proc)
	}
	s.mu.Unlock()

	if result != nil {
		select {
		case err := <-result:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, proc := range pending {
		select {
		case <-proc.done:
		case <-ctx.Done():
			s.logger.Warn().Int("pid", proc.PID).Msg("Backend still running at shutdown")
			return ctx.Err()
		}
	}
	return nil
}

// Status returns a snapshot of the supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Generation: s.generation,
		LastError:  s.lastError,
	}
	if s.current != nil {
		st.Running = true
		st.PID = s.current.PID
		st.StartedAt = s.current.StartedAt
	}
	for _, proc := range s.draining {
		st.Draining = append(st.Draining, proc.PID)
	}
	sort.Ints(st.Draining)
	if s.lastExit != nil {
		exit := *s.lastExit
		st.LastExit = &exit
	}
	return st
}

// Running reports whether a handle is held.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Wait blocks until the current generation exits or ctx is done. With no
// live handle it returns the last recorded exit immediately.
func (s *Supervisor) Wait(ctx context.Context) (ExitInfo, error) {
	s.mu.Lock()
	proc := s.current
	var last ExitInfo
	if s.lastExit != nil {
		last = *s.lastExit
	}
	s.mu.Unlock()

	if proc == nil {
		return last, nil
	}

	select {
	case <-proc.done:
		return proc.exit, nil
	case <-ctx.Done():
		return ExitInfo{}, ctx.Err()
	}
}

func (s *Supervisor) snapshotObservers() []func(ExitInfo) {
	out := make([]func(ExitInfo), len(s.observers))
	copy(out, s.observers)
	return out
}

func notify(observers []func(ExitInfo), info ExitInfo) {
	for _, fn := range observers {
		fn(info)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
