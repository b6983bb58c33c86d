// Package instance keeps a single live shell per user. The first launch
// holds an OS lock and listens for activations; later launches send one
// activation and exit.
package instance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auroradesk/aurora-shell/internal/constants"
	"github.com/auroradesk/aurora-shell/internal/logging"
)

// ErrNotHeld is returned by Serve when Acquire did not take the lock.
var ErrNotHeld = errors.New("instance lock not held")

// MsgFocus asks the running instance to show and focus its window.
const MsgFocus = "focus"

// Activation is the newline-delimited JSON message a second launch sends.
type Activation struct {
	Type  string   `json:"type"`
	Token string   `json:"token"`
	Args  []string `json:"args,omitempty"`
	PID   int      `json:"pid,omitempty"`
}

// Ack is the holder's reply.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Guard is the instance lock plus its activation channel.
type Guard struct {
	dir    string
	logger *logging.Logger

	mu       sync.Mutex
	held     bool
	lock     osLock
	listener net.Listener
	handler  func(Activation)
	wg       sync.WaitGroup
}

// New creates a guard keeping its lock and socket in dir. dir is ignored on
// Windows, where the lock is a named mutex.
func New(dir string, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Guard{dir: dir, logger: logger}
}

// Acquire tries to become the live instance. It returns false, with no
// error, when another instance holds the lock.
func (g *Guard) Acquire() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return true, nil
	}

	lock, ok, err := acquireLock(g.dir)
	if err != nil || !ok {
		return false, err
	}

	listener, err := listen(g.dir)
	if err != nil {
		lock.release()
		return false, fmt.Errorf("failed to open activation channel: %w", err)
	}

	g.lock = lock
	g.listener = listener
	g.held = true
	g.logger.Debug().Str("addr", listener.Addr().String()).Msg("Instance lock acquired")
	return true, nil
}

// Held reports whether this process is the live instance.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// OnSecondLaunch sets the handler for activations from later launches.
func (g *Guard) OnSecondLaunch(fn func(Activation)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = fn
}

// Signal tells the live instance to focus its window. Used by a launch that
// failed to Acquire, right before it exits.
func (g *Guard) Signal(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.ActivationTimeout)
	defer cancel()

	conn, err := dial(ctx, g.dir)
	if err != nil {
		return fmt.Errorf("failed to reach running instance: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	msg := Activation{
		Type:  MsgFocus,
		Token: uuid.NewString(),
		Args:  args,
		PID:   os.Getpid(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to send activation: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read activation reply: %w", err)
	}
	var ack Ack
	if err := json.Unmarshal(line, &ack); err != nil {
		return fmt.Errorf("invalid activation reply: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("running instance rejected activation: %s", ack.Error)
	}

	g.logger.Debug().Str("token", msg.Token).Msg("Activation delivered to running instance")
	return nil
}

// Serve accepts activations until ctx is done or Release is called.
func (g *Guard) Serve(ctx context.Context) error {
	g.mu.Lock()
	listener := g.listener
	g.mu.Unlock()
	if listener == nil {
		return ErrNotHeld
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				g.wg.Wait()
				return nil
			}
			g.logger.Warn().Err(err).Msg("Failed to accept activation")
			continue
		}
		g.wg.Add(1)
		go g.handleConnection(conn)
	}
}

func (g *Guard) handleConnection(conn net.Conn) {
	defer g.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(constants.ActivationTimeout))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		if err != io.EOF {
			g.logger.Warn().Err(err).Msg("Failed to read activation")
		}
		return
	}

	var msg Activation
	if err := json.Unmarshal(line, &msg); err != nil || msg.Type != MsgFocus {
		g.logger.Warn().Err(err).Msg("Ignoring malformed activation")
		writeAck(conn, Ack{OK: false, Error: "invalid activation"})
		return
	}

	g.logger.Info().Str("token", msg.Token).Int("from_pid", msg.PID).Msg("Second launch, focusing existing window")

	g.mu.Lock()
	handler := g.handler
	g.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
	writeAck(conn, Ack{OK: true})
}

func writeAck(w io.Writer, ack Ack) {
	data, _ := json.Marshal(ack)
	w.Write(append(data, '\n'))
}

// Release closes the activation channel and drops the lock. The OS also
// drops it when the process exits.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.held {
		return
	}
	if g.listener != nil {
		g.listener.Close()
		g.listener = nil
	}
	g.lock.release()
	g.lock = nil
	g.held = false
}

// osLock is the platform lock primitive.
type osLock interface {
	release()
}
