package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var (
	// ErrClosed is returned by ReadKey when the input has been closed and
	// no key is left
	ErrClosed = errors.New("console input closed")
	// ErrNoKey is returned by ReadKey when no key is queued
	ErrNoKey = errors.New("no key available")
)

// TTY is a console on a terminal (or any reader). Keystrokes are read in
// the background and queued until ReadKey consumes them.
type TTY struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	pending []rune
	err     error
	ready   chan struct{}

	raw     bool
	restore func() error
}

// NewTTY returns a console reading keys from in and writing to out. If in
// is a terminal it is switched to raw mode, so single keystrokes are
// delivered without waiting for a newline; Close restores it.
func NewTTY(in io.Reader, out io.Writer) (*TTY, error) {
	t := &TTY{
		in:      in,
		out:     out,
		ready:   make(chan struct{}, 1),
		restore: func() error { return nil },
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("cannot switch console to raw mode: %v", err)
		}
		t.raw = true
		t.restore = func() error { return term.Restore(fd, state) }
	}
	go t.readLoop()
	return t, nil
}

func (t *TTY) readLoop() {
	r := bufio.NewReader(t.in)
	for {
		key, _, err := r.ReadRune()
		t.mu.Lock()
		if err != nil {
			t.err = err
		} else {
			t.pending = append(t.pending, key)
		}
		t.mu.Unlock()
		t.notify()
		if err != nil {
			return
		}
	}
}

func (t *TTY) notify() {
	select {
	case t.ready <- struct{}{}:
	default:
	}
}

// WaitForKey returns a channel that is readable while a keystroke is
// queued. The channel is also signalled once the input fails, so a reader
// learns about it through ReadKey.
func (t *TTY) WaitForKey() <-chan struct{} {
	t.mu.Lock()
	if len(t.pending) > 0 || t.err != nil {
		t.notify()
	}
	t.mu.Unlock()
	return t.ready
}

// ReadKey returns the oldest queued keystroke
func (t *TTY) ReadKey() (rune, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		switch t.err {
		case nil:
			return 0, ErrNoKey
		case io.EOF:
			return 0, ErrClosed
		default:
			return 0, t.err
		}
	}
	key := t.pending[0]
	t.pending = t.pending[1:]
	if len(t.pending) > 0 {
		t.notify()
	}
	return key, nil
}

// Flush drops the keystrokes queued so far
func (t *TTY) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
	// the signal may be stale now
	select {
	case <-t.ready:
	default:
	}
}

// Printf writes text to the console. In raw mode newlines are written as
// CRLF.
func (t *TTY) Printf(format string, a ...interface{}) {
	s := fmt.Sprintf(format, a...)
	if t.raw {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	if _, err := io.WriteString(t.out, s); err != nil {
		log.Printf("Cannot write to console: %v", err)
	}
}

// Close restores the terminal state
func (t *TTY) Close() error {
	return t.restore()
}
