package main

import "sync"

// Timing is the timing subsystem CpuManager and CoreRunner consult to
// decide whether a core has anything left to do this pass and to
// report progress once it has run. Like ArchCore and PerCoreScheduler
// it is an external, interface-only collaborator: no event queue or
// cycle-accounting policy is part of this driver's scope.
type Timing interface {
	// ResetRun refills every core's per-pass run budget. Called once
	// per CpuManager.RunLoop invocation before the core dispatch loop.
	ResetRun()

	// SwitchContext marks core as the one CanCurrentContextRun should
	// report on until the next call.
	SwitchContext(core CoreIndex)

	// CanCurrentContextRun reports whether the core last named by
	// SwitchContext still has budget left this pass.
	CanCurrentContextRun() bool

	// Advance consumes one instruction slice's worth of budget from
	// the calling core.
	Advance()

	// Idle marks the calling core as having nothing to do for the
	// remainder of this pass.
	Idle()
}

// sharedTiming is the reference Timing implementation, backing both
// CpuManager's own ResetRun/SwitchContext/CanCurrentContextRun calls
// and, through coreScopedTiming, each CoreRunner's Advance/Idle calls.
//
// A single shared struct is unavoidable here: CpuManager.RunLoop
// drives SwitchContext(core) itself in single-core mode, but in
// multi-core mode CoreRunner's own Advance/Idle calls carry no core
// argument (per spec.md's literal CoreRunner algorithm) and run
// concurrently from separate goroutines with no shared "current core"
// to switch. sharedTiming resolves this by keeping per-core budgets
// addressable directly by index, and handing each CoreRunner a
// coreScopedTiming bound to its own index at construction so its
// no-argument Advance/Idle calls always land on the right slot,
// while CpuManager's own SwitchContext/CanCurrentContextRun pair
// (used only in single-core mode) reads and writes an independent
// "active" slot.
type sharedTiming struct {
	mu      sync.Mutex
	budget  [NumCores]int
	initial int
	active  CoreIndex
}

// newSharedTiming returns a Timing whose ResetRun grants each core
// sliceBudget instruction slices per pass.
func newSharedTiming(sliceBudget int) *sharedTiming {
	t := &sharedTiming{initial: sliceBudget}
	t.ResetRun()
	return t
}

func (t *sharedTiming) ResetRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.budget {
		t.budget[i] = t.initial
	}
}

func (t *sharedTiming) SwitchContext(core CoreIndex) {
	t.mu.Lock()
	t.active = core
	t.mu.Unlock()
}

func (t *sharedTiming) CanCurrentContextRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.budget[t.active] > 0
}

func (t *sharedTiming) Advance() {
	t.mu.Lock()
	t.active.consume(&t.budget)
	t.mu.Unlock()
}

func (t *sharedTiming) Idle() {
	t.mu.Lock()
	t.budget[t.active] = 0
	t.mu.Unlock()
}

// advanceCore and idleCore are the per-index primitives coreScopedTiming
// uses; they take the target core explicitly instead of relying on
// "active", which only reflects the single-core manager's own dispatch
// loop.
func (t *sharedTiming) advanceCore(core CoreIndex) {
	t.mu.Lock()
	core.consume(&t.budget)
	t.mu.Unlock()
}

func (t *sharedTiming) idleCore(core CoreIndex) {
	t.mu.Lock()
	t.budget[core] = 0
	t.mu.Unlock()
}

func (t *sharedTiming) canRun(core CoreIndex) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.budget[core] > 0
}

func (c CoreIndex) consume(budget *[NumCores]int) {
	if budget[c] > 0 {
		budget[c]--
	}
}

// coreScopedTiming implements Timing for a single CoreRunner, bound to
// one core index for its whole life. ResetRun/SwitchContext/
// CanCurrentContextRun forward to the shared instance for interface
// completeness; CoreRunner's own algorithm never calls them (only
// CpuManager does, on sharedTiming directly).
type coreScopedTiming struct {
	core   CoreIndex
	shared *sharedTiming
}

func (v *coreScopedTiming) ResetRun()                   { v.shared.ResetRun() }
func (v *coreScopedTiming) SwitchContext(core CoreIndex) { v.shared.SwitchContext(core) }
func (v *coreScopedTiming) CanCurrentContextRun() bool   { return v.shared.canRun(v.core) }
func (v *coreScopedTiming) Advance()                     { v.shared.advanceCore(v.core) }
func (v *coreScopedTiming) Idle()                        { v.shared.idleCore(v.core) }
