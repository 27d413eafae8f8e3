package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// LocalConsole is a raw-terminal debugger console for operators who
// would rather type commands at the process's own stdin than attach a
// network GDB client. Grounded in terminal_host.go's
// term.MakeRaw/term.Restore pairing and non-blocking read-goroutine
// shape, trimmed down from a full guest-terminal MMIO device to a
// small line-oriented command loop.
type LocalConsole struct {
	manager *CpuManager
	gdb     *GdbServer

	fd       int
	oldState *term.State
	stopCh   chan struct{}
	done     chan struct{}
}

// NewLocalConsole builds a console driving manager and gdb from
// operator input on os.Stdin.
func NewLocalConsole(manager *CpuManager, gdb *GdbServer) *LocalConsole {
	return &LocalConsole{
		manager: manager,
		gdb:     gdb,
		fd:      int(os.Stdin.Fd()),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start puts stdin into raw mode when it is a terminal (Stop restores
// it) and starts reading commands line by line. If stdin isn't a
// terminal, Start still works, reading plain lines.
func (c *LocalConsole) Start() error {
	if term.IsTerminal(c.fd) {
		old, err := term.MakeRaw(c.fd)
		if err != nil {
			return fmt.Errorf("localconsole: MakeRaw: %w", err)
		}
		c.oldState = old
	}
	go c.readLoop()
	return nil
}

// Stop restores the terminal and waits for the read loop to exit.
func (c *LocalConsole) Stop() {
	close(c.stopCh)
	if c.oldState != nil {
		term.Restore(c.fd, c.oldState)
	}
	<-c.done
}

func (c *LocalConsole) readLoop() {
	defer close(c.done)
	scanner := bufio.NewScanner(os.Stdin)
	// A raw-mode terminal delivers Enter as '\r' rather than '\n', so
	// a line ends at either byte.
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		for i, b := range data {
			if b == '\r' || b == '\n' {
				return i + 1, data[:i], nil
			}
		}
		if atEOF && len(data) > 0 {
			return len(data), data, nil
		}
		return 0, nil, nil
	})
	for scanner.Scan() {
		select {
		case <-c.stopCh:
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.handleCommand(line)
	}
}

func (c *LocalConsole) handleCommand(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "halt":
		c.gdb.Break(false)
		fmt.Fprintln(os.Stdout, "halted")
	case "continue", "c":
		c.gdb.dispatch("c")
		fmt.Fprintln(os.Stdout, "continuing")
	case "status":
		fmt.Fprintf(os.Stdout, "halted=%v connected=%v\n", c.gdb.GetCpuHaltFlag(), c.gdb.IsConnected())
	case "invalidate-icache":
		c.manager.InvalidateAllInstructionCaches()
		fmt.Fprintln(os.Stdout, "instruction caches invalidated")
	default:
		fmt.Fprintf(os.Stderr, "localconsole: unknown command %q\n", fields[0])
	}
}
