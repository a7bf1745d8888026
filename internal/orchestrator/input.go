package orchestrator

import (
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// KeySource produces key presses as an event stream so the playback
// loop can multiplex them against the child process and the status
// timer. It must not touch its reader before Keys is called: outside of
// playback the interactive prompts own stdin.
type KeySource interface {
	// Keys starts draining the source and returns the event stream.
	Keys() <-chan byte
	// Close releases the source, restoring any terminal state it changed.
	Close() error
}

// stdinKeys reads single bytes from a reader, usually os.Stdin. The
// drain goroutine starts on the first Keys call, and when the reader is
// a terminal it is switched to raw mode for the duration so key presses
// arrive without waiting for Enter.
type stdinKeys struct {
	r  io.Reader
	ch chan byte

	once    sync.Once
	mu      sync.Mutex
	restore func()
}

// NewStdinKeys wraps r, defaulting to os.Stdin. Nothing is read until
// Keys is called.
func NewStdinKeys(r io.Reader) KeySource {
	if r == nil {
		r = os.Stdin
	}
	return &stdinKeys{r: r, ch: make(chan byte)}
}

// Keys begins byte-wise draining. The channel closes when the reader is
// exhausted.
func (s *stdinKeys) Keys() <-chan byte {
	s.once.Do(func() {
		if f, ok := s.r.(*os.File); ok {
			fd := int(f.Fd())
			if term.IsTerminal(fd) {
				if state, err := term.MakeRaw(fd); err == nil {
					s.mu.Lock()
					s.restore = func() { _ = term.Restore(fd, state) }
					s.mu.Unlock()
				}
			}
		}
		go func() {
			defer close(s.ch)
			buf := make([]byte, 1)
			for {
				n, err := s.r.Read(buf)
				if n > 0 {
					s.ch <- buf[0]
				}
				if err != nil {
					return
				}
			}
		}()
	})
	return s.ch
}

// Close restores the terminal. The drain goroutine stays blocked on its
// read; the channel is simply abandoned.
func (s *stdinKeys) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}
	return nil
}
