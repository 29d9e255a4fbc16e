// Command nv4dbg is an interactive MMIO register debugger for an in-process
// nv4.Device: a raw-terminal line REPL exposing register reads/writes,
// method submission, and manual clock ticks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retrocore/nv4"
)

func main() {
	vramSize := flag.Int("vram", 16<<20, "VRAM size in bytes")
	revision := flag.String("rev", "C", "chip revision strap: A, B, or C")
	flag.Parse()

	rev := byte('C')
	if len(*revision) > 0 {
		rev = (*revision)[0]
	}

	dev, err := nv4.NewDevice(nv4.Config{
		VRAMSize: *vramSize,
		Revision: rev,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "nv4dbg: %v\n", err)
		os.Exit(1)
	}

	console := NewConsole(dev)
	host := NewTerminalHost(console)
	host.Start()
	defer host.Stop()

	fmt.Print("nv4dbg ready. type 'help' for commands.\r\n")

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group

	// Clock goroutine: advances the device's timer/vblank/FIFO state on a
	// fixed tick independent of how fast the operator types commands.
	g.Go(func() error {
		ticker := time.NewTicker(16 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				dev.Tick(16 * time.Millisecond)
			}
		}
	})

	// Output-draining goroutine: prints console command output as soon as
	// it is produced, decoupled from the clock's cadence.
	g.Go(func() error {
		ticker := time.NewTicker(16 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				host.PrintOutput()
				return nil
			case <-ticker.C:
				host.PrintOutput()
				if console.ShouldQuit() {
					cancel()
				}
			}
		}
	})

	g.Wait()
}
