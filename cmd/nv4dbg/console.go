package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/retrocore/nv4"
)

// Console is the MMIO register debugger's line-command interpreter: every
// complete line TerminalHost routes to RouteHostLine is parsed as one
// command against a live *nv4.Device. Output accumulates in outBuf for the
// main loop to drain and print, the same producer/consumer split the
// teacher's TerminalMMIO uses between RouteHostKey and DrainOutput.
type Console struct {
	dev *nv4.Device

	mu     sync.Mutex
	outBuf strings.Builder
	quit   bool
}

func NewConsole(dev *nv4.Device) *Console {
	return &Console{dev: dev}
}

// RouteHostLine executes one already-newline-terminated command line.
func (c *Console) RouteHostLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "r", "r32":
		c.cmdRead(args, 32)
	case "r16":
		c.cmdRead(args, 16)
	case "r8":
		c.cmdRead(args, 8)
	case "w", "w32":
		c.cmdWrite(args, 32)
	case "w16":
		c.cmdWrite(args, 16)
	case "w8":
		c.cmdWrite(args, 8)
	case "push":
		c.cmdPush(args)
	case "tick":
		c.cmdTick(args)
	case "irq":
		c.printf("irq asserted: %v\n", c.dev.IRQAsserted())
	case "quit", "exit", "q":
		c.mu.Lock()
		c.quit = true
		c.mu.Unlock()
	case "help":
		c.printf("commands: r/r16/r8 <addr>, w/w16/w8 <addr> <val>, push <chan> <sub> <method> <data>, tick <ms>, irq, quit\n")
	default:
		c.printf("unknown command %q (try help)\n", cmd)
	}
}

func (c *Console) cmdRead(args []string, width int) {
	if len(args) != 1 {
		c.printf("usage: r<width> <hex addr>\n")
		return
	}
	addr, err := parseHex(args[0])
	if err != nil {
		c.printf("bad address: %v\n", err)
		return
	}
	switch width {
	case 8:
		c.printf("[%#08x] = %#02x\n", addr, c.dev.Read8(addr))
	case 16:
		c.printf("[%#08x] = %#04x\n", addr, c.dev.Read16(addr))
	default:
		c.printf("[%#08x] = %#08x\n", addr, c.dev.Read32(addr))
	}
}

func (c *Console) cmdWrite(args []string, width int) {
	if len(args) != 2 {
		c.printf("usage: w<width> <hex addr> <hex val>\n")
		return
	}
	addr, err := parseHex(args[0])
	if err != nil {
		c.printf("bad address: %v\n", err)
		return
	}
	val, err := parseHex(args[1])
	if err != nil {
		c.printf("bad value: %v\n", err)
		return
	}
	switch width {
	case 8:
		c.dev.Write8(addr, uint8(val))
	case 16:
		c.dev.Write16(addr, uint16(val))
	default:
		c.dev.Write32(addr, val)
	}
	c.printf("ok\n")
}

// cmdPush synthesizes an NV_USER submission address from (channel,
// subchannel, method) and issues it as a plain Write32, the same path real
// host driver code would take.
func (c *Console) cmdPush(args []string) {
	if len(args) != 4 {
		c.printf("usage: push <channel> <subchannel> <hex method> <hex data>\n")
		return
	}
	channel, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		c.printf("bad channel: %v\n", err)
		return
	}
	subchannel, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		c.printf("bad subchannel: %v\n", err)
		return
	}
	method, err := parseHex(args[2])
	if err != nil {
		c.printf("bad method: %v\n", err)
		return
	}
	data, err := parseHex(args[3])
	if err != nil {
		c.printf("bad data: %v\n", err)
		return
	}
	const (
		nvUserStart           = 0x800000
		nvUserChannelShift    = 16
		nvUserSubchannelShift = 13
	)
	addr := uint32(nvUserStart) | uint32(channel)<<nvUserChannelShift | uint32(subchannel)<<nvUserSubchannelShift | (method & 0x1FFC)
	c.dev.Write32(addr, data)
	c.printf("pushed\n")
}

func (c *Console) cmdTick(args []string) {
	ms := 16
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			c.printf("bad duration: %v\n", err)
			return
		}
		ms = v
	}
	c.dev.Tick(time.Duration(ms) * time.Millisecond)
	c.printf("ticked %dms\n", ms)
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(&c.outBuf, format, args...)
}

// DrainOutput returns and clears accumulated command output, mirroring the
// teacher's TerminalMMIO.DrainOutput.
func (c *Console) DrainOutput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.outBuf.String()
	c.outBuf.Reset()
	return s
}

func (c *Console) ShouldQuit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quit
}
