//go:build windows

package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// TerminalHost is the Windows counterpart of terminal_host.go: os.Stdin.Read
// blocks rather than returning EAGAIN, so there is no non-blocking toggle,
// matching IntuitionEngine's terminal_host_windows.go.
type TerminalHost struct {
	console      *Console
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
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

func (h *TerminalHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := os.Stdin.Read(buf)
			if n > 0 {
				h.handleByte(buf[0])
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
	case 0x7F, 0x08:
		if len(h.line) > 0 {
			h.line = h.line[:len(h.line)-1]
			fmt.Print("\b \b")
		}
	case 0x03:
		h.console.RouteHostLine("quit")
	default:
		h.line = append(h.line, b)
		fmt.Printf("%c", b)
	}
}

func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

func (h *TerminalHost) PrintOutput() {
	out := h.console.DrainOutput()
	if len(out) > 0 {
		fmt.Print(out)
	}
}
