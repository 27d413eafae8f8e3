package main

import "sync"

// CoreRunner drives one core's ArchCore/PerCoreScheduler pair through
// the RunLoop algorithm, consulting the GdbServer for halt and
// per-thread step requests along the way. Exactly one host goroutine
// is expected to call RunLoop on a given CoreRunner at a time; runMu
// turns a violation of that into an immediate panic rather than a
// silent race, mirroring the ASSERT-style guards the teacher's C++
// ancestor uses for the same invariant.
type CoreRunner struct {
	index     CoreIndex
	arch      ArchCore
	scheduler PerCoreScheduler
	timing    Timing
	gdb       *GdbServer

	// kernelLock is shared by every CoreRunner under one CpuManager;
	// Reschedule holds it exactly the way core_manager.cpp's
	// Reschedule holds HLE::g_hle_lock.
	kernelLock *sync.Mutex

	runMu sync.Mutex

	onFault func(thread ThreadHandle, err error)
}

// NewCoreRunner constructs a CoreRunner for core index, wired to the
// given collaborators. kernelLock must be shared across every core of
// the owning CpuManager.
func NewCoreRunner(index CoreIndex, arch ArchCore, scheduler PerCoreScheduler, timing Timing, gdb *GdbServer, kernelLock *sync.Mutex) *CoreRunner {
	return &CoreRunner{
		index:      index,
		arch:       arch,
		scheduler:  scheduler,
		timing:     timing,
		gdb:        gdb,
		kernelLock: kernelLock,
	}
}

// SetFaultHandler installs a callback invoked whenever RunLoop
// converts an ArchCore fault into a stop reply, in addition to the
// GdbServer notification. CpuManager uses this to track which core is
// currently the debugger's focus.
func (r *CoreRunner) SetFaultHandler(fn func(thread ThreadHandle, err error)) {
	r.onFault = fn
}

// RunLoop runs this core for one dispatch slot. tight selects between
// letting ArchCore run freely (true) and forcing exactly one
// instruction (false); a pending debugger step request downgrades a
// tight request to a single step regardless of the caller's choice.
func (r *CoreRunner) RunLoop(tight bool) {
	if !r.runMu.TryLock() {
		panic("core_runner: RunLoop entered concurrently for the same core")
	}
	defer r.runMu.Unlock()

	r.reschedule()

	thread := r.scheduler.GetCurrentThread(r.index)
	if thread == NoThread {
		r.timing.Idle()
		r.PrepareReschedule()
		r.reschedule()
		return
	}

	if r.gdb != nil && r.gdb.GetCpuHaltFlag() {
		r.reschedule()
		return
	}

	debuggerStep := r.gdb != nil && r.gdb.GetThreadStepFlag(thread)
	if debuggerStep {
		r.gdb.Break(false)
		tight = false
	}

	var err error
	if tight {
		err = r.arch.Run()
	} else {
		err = r.arch.Step()
	}
	if err != nil {
		r.handleFault(thread, err)
	} else if debuggerStep {
		// The forced step landed cleanly: report the stop. The step
		// flag itself is left set until a continue packet consumes it,
		// per GdbServer's continue semantics.
		r.gdb.SendTrap(thread, int(SignalTrap))
	}

	r.timing.Advance()
	r.reschedule()
}

// SingleStep is equivalent to RunLoop(false): it executes at most one
// instruction, and none if the core has no current thread or the
// debugger halt flag is set.
func (r *CoreRunner) SingleStep() {
	r.RunLoop(false)
}

// PrepareReschedule asks the ArchCore to stop at its next opportunity
// so the scheduler can pick a new thread.
func (r *CoreRunner) PrepareReschedule() {
	r.arch.Stop()
}

// Shutdown releases this runner's ArchCore. The reference ArchCore
// holds no external resources beyond being stopped.
func (r *CoreRunner) Shutdown() {
	r.arch.Stop()
	r.arch.ClearExclusiveState()
}

func (r *CoreRunner) handleFault(thread ThreadHandle, err error) {
	sig := SignalTrap
	if af, ok := err.(*ArchFault); ok {
		sig = af.Signal
	}
	if r.gdb != nil {
		r.gdb.SendTrap(thread, int(sig))
		r.gdb.Break(false)
	}
	if r.onFault != nil {
		r.onFault(thread, err)
	}
}

// reschedule mirrors core_manager.cpp's Reschedule: select this core's
// next thread and let the scheduler commit any pending context switch,
// under the shared kernel lock.
func (r *CoreRunner) reschedule() {
	r.kernelLock.Lock()
	defer r.kernelLock.Unlock()
	r.scheduler.SelectThread(r.index)
	r.scheduler.TryDoContextSwitch()
}
