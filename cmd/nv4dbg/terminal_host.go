//go:build !windows

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TerminalHost reads raw stdin and assembles it into lines for Console.
// Grounded on IntuitionEngine's terminal_host.go: same raw-mode,
// non-blocking single-byte read loop, repurposed to buffer a full command
// line instead of routing individual keystrokes to a virtual keyboard port.
type TerminalHost struct {
	console      *Console
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
	line         []byte
}

func NewTerminalHost(console *Console) *TerminalHost {
	return &TerminalHost{
		console: console,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start sets stdin to raw, non-blocking mode and begins reading in a
// goroutine, feeding complete lines to the console as each '\n' arrives.
func (h *TerminalHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				h.handleByte(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (h *TerminalHost) handleByte(b byte) {
	switch b {
	case '\r', '\n':
		fmt.Print("\r\n")
		h.console.RouteHostLine(string(h.line))
		h.line = h.line[:0]
	case 0x7F, 0x08: // DEL or BS
		if len(h.line) > 0 {
			h.line = h.line[:len(h.line)-1]
			fmt.Print("\b \b")
		}
	case 0x03: // Ctrl-C
		h.console.RouteHostLine("quit")
	default:
		h.line = append(h.line, b)
		fmt.Printf("%c", b)
	}
}

// Stop terminates the stdin reading goroutine and restores stdin to
// blocking, cooked mode.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// PrintOutput drains the console's output buffer and prints it to stdout.
func (h *TerminalHost) PrintOutput() {
	out := h.console.DrainOutput()
	if len(out) > 0 {
		fmt.Print(out)
	}
}
