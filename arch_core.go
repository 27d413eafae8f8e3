package main

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Signal mirrors the small subset of POSIX signal numbers the GDB
// remote protocol reports in stop replies.
type Signal int

const (
	SignalTrap Signal = 5  // SIGTRAP: breakpoint, single-step, or explicit halt
	SignalSegv Signal = 17 // 0x11, SIGSEGV: an ArchExecutionFault
)

// ArchFault is returned by ArchCore.Run/Step when guest execution
// cannot continue. CoreRunner turns it into a stop reply and a halt
// rather than propagating it as an ordinary Go error up the stack.
type ArchFault struct {
	Signal Signal
	Err    error
}

func (f *ArchFault) Error() string {
	return fmt.Sprintf("arch fault (signal %d): %v", f.Signal, f.Err)
}

func (f *ArchFault) Unwrap() error { return f.Err }

// ArchCore is the execution engine CoreRunner drives. It is specified
// only by this interface: no instruction semantics, ISA, or JIT/
// interpreter choice is part of this driver's scope, matching
// spec.md's explicit non-goal. A real engine (dynarmic/unicorn-style)
// would satisfy this from native code via cgo; the reference
// implementation below exists to make the driver runnable and
// testable without one.
type ArchCore interface {
	// Run executes guest instructions until it stops itself (e.g. a
	// guest HLT), Stop is called from another goroutine, or a fault
	// occurs. It must return promptly after Stop.
	Run() error

	// Step executes exactly one guest instruction, or returns a fault
	// if it cannot.
	Step() error

	// Stop asks a concurrently running Run to return at its next
	// opportunity. Safe to call from any goroutine.
	Stop()

	// RegisterNames lists this core's registers in a stable order,
	// used to serialize the 'g'/'G' packets' flat register blob.
	RegisterNames() []string
	ReadRegister(name string) (uint64, bool)
	WriteRegister(name string, value uint64) bool

	PC() uint64
	SetPC(addr uint64)

	// PageTableChanged and ClearInstructionCache are invalidation
	// hooks the kernel calls when guest memory mappings or executable
	// pages change underneath a running core.
	PageTableChanged()
	ClearInstructionCache()

	// ClearExclusiveState drops this core's outstanding exclusive
	// monitor reservation. CoreRunner.Shutdown calls it; the reference
	// scheduler's context switch does not.
	ClearExclusiveState()
}

// loopArchCore is the reference ArchCore. It has no instruction
// semantics: each "instruction" is a no-op program-counter increment,
// bounded per Run call by a fixed slice budget so a tight_loop=true
// Run always returns instead of spinning forever, the same way a real
// JIT returns to its caller once its host-mapped ticks are spent.
type loopArchCore struct {
	running atomic.Bool
	pc      atomic.Uint64

	regsMu sync.Mutex
	regs   map[string]uint64

	sliceBudget int

	// fault, when set, is consulted once per step and lets tests
	// inject an ArchFault at a chosen point without a real ISA.
	faultMu sync.Mutex
	fault   func(pc uint64) error
}

func newLoopArchCore(sliceBudget int) *loopArchCore {
	return &loopArchCore{
		regs:        map[string]uint64{"PC": 0, "X0": 0},
		sliceBudget: sliceBudget,
	}
}

func (c *loopArchCore) setFault(fn func(pc uint64) error) {
	c.faultMu.Lock()
	c.fault = fn
	c.faultMu.Unlock()
}

func (c *loopArchCore) Run() error {
	c.running.Store(true)
	for i := 0; i < c.sliceBudget && c.running.Load(); i++ {
		if err := c.stepOnce(); err != nil {
			return err
		}
	}
	return nil
}

func (c *loopArchCore) Step() error {
	return c.stepOnce()
}

func (c *loopArchCore) stepOnce() error {
	c.faultMu.Lock()
	fault := c.fault
	c.faultMu.Unlock()
	if fault != nil {
		if err := fault(c.pc.Load()); err != nil {
			return err
		}
	}
	c.pc.Add(1)
	c.SetPC(c.pc.Load())
	return nil
}

func (c *loopArchCore) Stop() { c.running.Store(false) }

func (c *loopArchCore) RegisterNames() []string { return []string{"PC", "X0"} }

func (c *loopArchCore) ReadRegister(name string) (uint64, bool) {
	c.regsMu.Lock()
	defer c.regsMu.Unlock()
	v, ok := c.regs[name]
	return v, ok
}

func (c *loopArchCore) WriteRegister(name string, value uint64) bool {
	c.regsMu.Lock()
	defer c.regsMu.Unlock()
	if _, ok := c.regs[name]; !ok {
		return false
	}
	c.regs[name] = value
	return true
}

func (c *loopArchCore) PC() uint64 { return c.pc.Load() }

func (c *loopArchCore) SetPC(addr uint64) {
	c.pc.Store(addr)
	c.regsMu.Lock()
	c.regs["PC"] = addr
	c.regsMu.Unlock()
}

func (c *loopArchCore) PageTableChanged()      {}
func (c *loopArchCore) ClearInstructionCache() {}
func (c *loopArchCore) ClearExclusiveState()   {}
