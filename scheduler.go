package main

import "sync"

// ThreadHandle is the opaque identity a PerCoreScheduler hands out for
// a schedulable thread. Realized here as a plain uint64 rather than an
// opaque interface value: the GDB remote protocol addresses threads by
// a numeric id on the wire, so a scheduler-side identity that is
// already a number avoids a second translation table between "the
// scheduler's thread" and "the wire's thread". NoThread is the
// reserved value meaning no thread is current on a core.
type ThreadHandle uint64

// NoThread is never assigned to a real thread.
const NoThread ThreadHandle = 0

// PerCoreScheduler is the thread scheduler CoreRunner consults. Its
// thread-selection policy is out of scope for this driver (spec.md's
// non-goal): CoreRunner only ever calls SelectThread and
// TryDoContextSwitch to advance it and GetCurrentThread to read its
// result.
type PerCoreScheduler interface {
	// SelectThread picks (or re-affirms) the thread that should run
	// next on core, updating GetCurrentThread's result.
	SelectThread(core CoreIndex)

	// TryDoContextSwitch performs a pending context switch prepared by
	// SelectThread, if one is due.
	TryDoContextSwitch()

	// GetCurrentThread returns the thread presently assigned to core,
	// or NoThread if none is runnable there.
	GetCurrentThread(core CoreIndex) ThreadHandle

	// StepFlag reports whether the scheduler itself has flagged thread
	// for a forced single step. This is a distinct mechanism from the
	// debugger's per-thread step flag (see GdbServer.GetThreadStepFlag)
	// and CoreRunner does not consult it directly; it exists so a
	// scheduler implementation has a place to request one, matching
	// the external contract this driver was specified against.
	StepFlag(thread ThreadHandle) bool
}

// roundRobinScheduler is the reference PerCoreScheduler: a fixed
// per-core run queue visited in round-robin order. It has no notion of
// priority, fairness, or preemption policy — those are explicitly out
// of scope — and exists to make CoreRunner runnable end to end.
type roundRobinScheduler struct {
	mu      sync.Mutex
	queues  [NumCores][]ThreadHandle
	current [NumCores]ThreadHandle
}

func newRoundRobinScheduler() *roundRobinScheduler {
	return &roundRobinScheduler{}
}

// SetRunnable replaces core's run queue, used by tests and by startup
// code to seed which threads a core may run.
func (s *roundRobinScheduler) SetRunnable(core CoreIndex, threads ...ThreadHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[core] = append([]ThreadHandle(nil), threads...)
}

func (s *roundRobinScheduler) SelectThread(core CoreIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[core]
	if len(q) == 0 {
		s.current[core] = NoThread
		return
	}
	next := q[0]
	s.queues[core] = append(q[1:], next)
	s.current[core] = next
}

func (s *roundRobinScheduler) TryDoContextSwitch() {
	// The reference scheduler has no deferred-switch state to commit;
	// SelectThread already applies its choice synchronously.
}

func (s *roundRobinScheduler) GetCurrentThread(core CoreIndex) ThreadHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[core]
}

func (s *roundRobinScheduler) StepFlag(thread ThreadHandle) bool {
	return false
}
