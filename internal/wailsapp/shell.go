package wailsapp

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/auroradesk/aurora-shell/internal/bridge"
	"github.com/auroradesk/aurora-shell/internal/config"
	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/instance"
	"github.com/auroradesk/aurora-shell/internal/logging"
	"github.com/auroradesk/aurora-shell/internal/metrics"
	"github.com/auroradesk/aurora-shell/internal/supervisor"
	"github.com/auroradesk/aurora-shell/internal/tray"
	"github.com/auroradesk/aurora-shell/internal/window"
)

// Deps are the pieces Run builds from the environment and tests replace.
type Deps struct {
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	Guard      *instance.Guard
	Menu       tray.Menu
	BackendLog io.Writer
}

// Shell wires the core components together independent of the webview
// toolkit. Run drives it from the Wails lifecycle hooks.
type Shell struct {
	cfg     *config.ShellConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
	menu    tray.Menu

	Guard      *instance.Guard
	Supervisor *supervisor.Supervisor
	Window     *window.Controller
	Tray       *tray.Controller
	Bridge     *bridge.Bridge

	mu       sync.Mutex
	quitApp  func()
	cancel   context.CancelFunc
	shutdown sync.Once
}

// NewShell builds every component from cfg. Nothing runs until Prepare.
func NewShell(cfg *config.ShellConfig, deps Deps) (*Shell, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if deps.Guard == nil {
		deps.Guard = instance.New(config.RuntimeDirectory(), logger.Stage("instance"))
	}

	client, err := bridge.NewClient(cfg.Bridge.BaseURL, bridge.PolicyFromConfig(cfg), logger.Stage("bridge"), deps.Metrics)
	if err != nil {
		return nil, err
	}
	if !cfg.BridgeIsLoopback() {
		logger.Warn().Str("base_url", cfg.Bridge.BaseURL).Msg("Bridge base URL is not loopback")
	}

	s := &Shell{
		cfg:     cfg,
		logger:  logger,
		metrics: deps.Metrics,
		menu:    deps.Menu,
		Guard:   deps.Guard,
	}

	s.Supervisor = supervisor.New(supervisor.SpecFromConfig(cfg), supervisor.Options{
		Logger:    logger.Stage("supervisor"),
		Metrics:   deps.Metrics,
		OutputLog: deps.BackendLog,
	})
	s.Window = window.NewController(nil, func() { s.Supervisor.Stop() }, cfg.Window.StartHidden, logger.Stage("window"))
	s.Tray = tray.NewController(s.Window, s.Supervisor, s.terminate, logger.Stage("tray"))
	s.Bridge = bridge.New(
		client,
		bridge.NewFallbackLogger(config.FallbackLogPath("")),
		logger.Stage("bridge"),
		deps.Metrics,
	)
	return s, nil
}

// Prepare takes the instance lock and starts the backend. It returns false
// when another instance is running; that instance has been asked to focus
// its window and the caller should exit without starting anything.
func (s *Shell) Prepare(ctx context.Context, args []string) (bool, error) {
	held, err := s.Guard.Acquire()
	if err != nil {
		return false, err
	}
	if !held {
		s.logger.Info().Msg("Another instance is running, handing over")
		if err := s.Guard.Signal(ctx, args); err != nil {
			return false, err
		}
		return false, nil
	}

	s.Guard.OnSecondLaunch(func(instance.Activation) { s.Window.Open() })

	if s.cfg.Backend.Autostart {
		s.Supervisor.Start()
	} else {
		s.logger.Info().Msg("Backend autostart disabled")
	}
	return true, nil
}

// Startup runs once the native window exists. quit ends the webview loop.
func (s *Shell) Startup(ctx context.Context, surface window.Surface, quit func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.quitApp = quit
	s.cancel = cancel
	s.mu.Unlock()

	s.Window.Attach(surface)
	if s.menu != nil {
		s.Tray.Attach(s.menu, s.Supervisor)
	}
	bridge.Attach(ctx, s.Bridge)

	go func() {
		if err := s.Guard.Serve(ctx); err != nil && !errors.Is(err, instance.ErrNotHeld) {
			s.logger.Warn().Err(err).Msg("Activation listener stopped")
		}
	}()

	if addr := s.cfg.Logging.MetricsAddr; addr != "" && s.metrics != nil {
		go func() {
			if err := s.metrics.Serve(ctx, addr, s.logger.Stage("metrics")); err != nil {
				s.logger.Warn().Err(err).Str("addr", addr).Msg("Metrics listener failed")
			}
		}()
	}

	go s.watchSignals(ctx)

	s.logger.Info().Msg("Shell started")
}

// watchSignals turns SIGINT/SIGTERM into the same quit path as the tray.
func (s *Shell) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("Signal received, quitting")
		s.Window.Quit()
		s.terminate()
	case <-ctx.Done():
	}
}

// DomReady is the content-loaded hook.
func (s *Shell) DomReady() {
	s.Window.ContentReady()
}

// BeforeClose is the window close hook. It returns true to keep the window.
func (s *Shell) BeforeClose() bool {
	return !s.Window.RequestClose()
}

// Shutdown is the application-terminating hook. It is safe to reach it
// after the tray or a signal has already quit. It returns once the backend
// has exited or BackendStopTimeout has passed.
func (s *Shell) Shutdown() {
	s.Window.Quit()
	s.shutdown.Do(func() {
		ctx, cancelWait := context.WithTimeout(context.Background(), constants.BackendStopTimeout)
		if err := s.Supervisor.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Backend did not stop cleanly")
		}
		cancelWait()

		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.Guard.Release()
		s.logger.Info().Msg("Shell stopped")
	})
}

func (s *Shell) terminate() {
	s.mu.Lock()
	quit := s.quitApp
	s.mu.Unlock()
	if quit != nil {
		quit()
	}
}
