// Package player launches and controls the external playback processes
// (mpv, syncplay).
package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/famomatic/ytchill/internal/types"
)

// mpv exits with 4 when the user quits from inside its own control
// scheme. That is a normal end of playback, not a failure.
const mpvQuitExitCode = 4

// Process is a running playback child. The orchestrator owns exactly one
// at a time and releases it when the process exits or is terminated.
type Process interface {
	// Done yields the process result exactly once. A nil value means
	// playback ended normally.
	Done() <-chan error
	// SendKey forwards one raw key byte to the child. Escape sequences
	// may take several calls to assemble; unmapped bytes are dropped.
	SendKey(b byte) error
	// Terminate kills the child, best effort. Safe after exit.
	Terminate() error
}

// Launcher starts the mode-appropriate playback process for a record.
type Launcher struct {
	log *slog.Logger
}

// New creates a Launcher. A nil logger defaults to slog.Default().
func New(log *slog.Logger) *Launcher {
	if log == nil {
		log = slog.Default()
	}
	return &Launcher{log: log}
}

// Launch starts playback of the record. Syncplay mode launches syncplay;
// everything else launches mpv, audio-only unless the mode carries
// video. Keys reach mpv through its JSON IPC socket; mpv does not read
// our piped stdin.
func (l *Launcher) Launch(ctx context.Context, rec types.VideoRecord, mode types.PlayMode) (Process, error) {
	url := rec.WatchURL()

	if mode == types.ModeSyncplay {
		return l.start(ctx, "syncplay", []string{url}, nil, "")
	}

	socket := filepath.Join(os.TempDir(), fmt.Sprintf("ytchill-mpv-%d.sock", os.Getpid()))
	args := []string{"--really-quiet", "--input-ipc-server=" + socket}
	if !mode.WantsVideo() {
		args = append(args, "--no-video")
	}
	args = append(args, url)
	return l.start(ctx, "mpv", args, ignoreExitCode(mpvQuitExitCode), socket)
}

func (l *Launcher) start(ctx context.Context, bin string, args []string, mapExit func(int) error, socket string) (Process, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrToolMissing, bin)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	// The player's stderr is noise during normal operation.
	cmd.Stderr = nil

	var stdin io.WriteCloser
	if socket == "" {
		var err error
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrToolFailed, bin, err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrToolFailed, bin, err)
	}
	l.log.Debug("player started", "bin", bin, "pid", cmd.Process.Pid)

	p := &proc{bin: bin, cmd: cmd, stdin: stdin, done: make(chan error, 1)}
	if socket != "" {
		p.ipc = newMpvIPC(socket)
	}
	go func() {
		err := cmd.Wait()
		if p.ipc != nil {
			p.ipc.close()
			_ = os.Remove(socket)
		}
		p.done <- exitError(bin, err, mapExit)
	}()
	return p, nil
}

type proc struct {
	bin   string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	ipc   *mpvIPC
	done  chan error
}

func (p *proc) Done() <-chan error { return p.done }

func (p *proc) SendKey(b byte) error {
	if p.ipc != nil {
		return p.ipc.sendKey(b)
	}
	_, err := p.stdin.Write([]byte{b})
	return err
}

func (p *proc) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// mpvIPC speaks mpv's line-delimited JSON protocol over the unix socket
// named by --input-ipc-server. The socket appears shortly after mpv
// starts, so the first send dials with retries.
type mpvIPC struct {
	socket string

	mu   sync.Mutex
	conn net.Conn
	esc  []byte
}

func newMpvIPC(socket string) *mpvIPC {
	return &mpvIPC{socket: socket}
}

// sendKey translates one raw byte and, once a full key is assembled,
// issues a keypress command. Bytes with no mpv mapping are dropped.
func (c *mpvIPC) sendKey(b byte) error {
	c.mu.Lock()
	name, ok := translateKey(&c.esc, b)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.command("keypress", name)
}

func (c *mpvIPC) command(args ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, err := dialRetry(c.socket, 2*time.Second)
		if err != nil {
			return fmt.Errorf("%w: mpv ipc: %v", types.ErrToolFailed, err)
		}
		c.conn = conn
	}
	payload, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("%w: mpv ipc: %v", types.ErrToolFailed, err)
	}
	return nil
}

func (c *mpvIPC) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func dialRetry(socket string, wait time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(wait)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// translateKey maps raw terminal bytes to mpv key names. esc accumulates
// a pending ANSI escape sequence across calls (raw-mode arrow keys
// arrive as ESC [ A..D).
func translateKey(esc *[]byte, b byte) (string, bool) {
	if len(*esc) > 0 {
		*esc = append(*esc, b)
		switch {
		case len(*esc) == 2 && b == '[':
			return "", false
		case len(*esc) == 3:
			seq := (*esc)[2]
			*esc = nil
			switch seq {
			case 'A':
				return "UP", true
			case 'B':
				return "DOWN", true
			case 'C':
				return "RIGHT", true
			case 'D':
				return "LEFT", true
			}
			return "", false
		default:
			*esc = nil
			return "", false
		}
	}

	switch {
	case b == 0x1b:
		*esc = []byte{b}
		return "", false
	case b == ' ':
		return "SPACE", true
	case b == '\r' || b == '\n':
		return "ENTER", true
	case b > ' ' && b < 0x7f:
		return string(b), true
	}
	return "", false
}

// exitError maps a Wait result to the tool-failure kind, honoring
// exit codes the binary defines as a user-initiated quit.
func exitError(bin string, err error, mapExit func(int) error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && mapExit != nil {
		if mapExit(exitErr.ExitCode()) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %v", types.ErrToolFailed, bin, err)
}

func ignoreExitCode(code int) func(int) error {
	return func(got int) error {
		if got == code {
			return nil
		}
		return fmt.Errorf("exit code %d", got)
	}
}
