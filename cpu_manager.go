package main

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ThreadToCoreMap records which CoreRunner each live host thread is
// currently driving. Kept as an ordinary map behind a mutex rather
// than tucked away in thread-local storage, so it stays inspectable at
// Shutdown the way the older CpuCoreManager generation's thread_to_cpu
// map was.
type ThreadToCoreMap struct {
	mu sync.RWMutex
	m  map[uint64]*CoreRunner
}

func newThreadToCoreMap() *ThreadToCoreMap {
	return &ThreadToCoreMap{m: make(map[uint64]*CoreRunner)}
}

func (t *ThreadToCoreMap) bind(id uint64, r *CoreRunner) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[id] = r
}

func (t *ThreadToCoreMap) lookup(id uint64) (*CoreRunner, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.m[id]
	return r, ok
}

func (t *ThreadToCoreMap) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m = make(map[uint64]*CoreRunner)
}

// CpuManager owns the four CoreRunners, the Barrier and
// ExclusiveMonitor they share, and the ThreadToCoreMap that lets
// GetCurrentCoreRunner answer "which core is the calling host thread
// driving". Its RunLoop is the single-core cooperative dispatcher from
// the newer manager generation; StartThreads/Shutdown are the explicit
// per-thread lifecycle from the older one. See DESIGN.md for why both
// are kept.
type CpuManager struct {
	settings *Settings
	gdb      *GdbServer

	archFactory  func(CoreIndex) ArchCore
	schedFactory func(CoreIndex) PerCoreScheduler

	kernelLock sync.Mutex

	cores  [NumCores]*CoreRunner
	scheds [NumCores]PerCoreScheduler

	monitor *ExclusiveMonitor
	barrier *Barrier
	timing  *sharedTiming

	threadMap  *ThreadToCoreMap
	activeMu   sync.Mutex
	activeCore CoreIndex

	focusMu     sync.Mutex
	focusedCore CoreIndex

	group *errgroup.Group
}

// NewCpuManager constructs a CpuManager. archFactory/schedFactory build
// the per-core ArchCore/PerCoreScheduler; production callers supply
// real engine bindings, tests supply fakes.
func NewCpuManager(settings *Settings, gdb *GdbServer, archFactory func(CoreIndex) ArchCore, schedFactory func(CoreIndex) PerCoreScheduler) *CpuManager {
	return &CpuManager{
		settings:     settings,
		gdb:          gdb,
		archFactory:  archFactory,
		schedFactory: schedFactory,
		threadMap:    newThreadToCoreMap(),
	}
}

// Initialize builds the Barrier, ExclusiveMonitor, timing subsystem,
// and all four CoreRunners. Must be called once before StartThreads.
func (m *CpuManager) Initialize() {
	m.monitor = NewExclusiveMonitor()
	m.barrier = NewBarrier()
	m.timing = newSharedTiming(m.settings.TimingSliceBudget)

	for i := CoreIndex(0); i < NumCores; i++ {
		idx := i
		arch := m.archFactory(idx)
		sched := m.schedFactory(idx)
		m.scheds[idx] = sched
		view := &coreScopedTiming{core: idx, shared: m.timing}
		runner := NewCoreRunner(idx, arch, sched, view, m.gdb, &m.kernelLock)
		runner.SetFaultHandler(func(thread ThreadHandle, err error) {
			m.setFocus(idx)
		})
		m.cores[idx] = runner
	}

	if m.gdb != nil {
		m.gdb.SetTarget(m)
	}
}

// StartThreads, if use_multi_core is set, binds the calling host thread
// to core 0 and spawns one goroutine per remaining core, each pinned to
// its own OS thread and looping RunLoop(true) until the barrier ends. In single-core mode nothing else is spawned: the
// caller drives every core itself through RunLoop, and the thread map
// is left untouched since GetCurrentCoreRunner answers from
// activeCore instead — hostThreadID is a Linux-only mechanism and
// single-core mode must not depend on it.
func (m *CpuManager) StartThreads() {
	if !m.settings.UseMultiCore {
		return
	}
	m.threadMap.bind(hostThreadID(), m.cores[0])

	var g errgroup.Group
	for i := 1; i < NumCores; i++ {
		idx := CoreIndex(i)
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			m.threadMap.bind(hostThreadID(), m.cores[idx])
			for !m.barrier.Ending() {
				m.cores[idx].RunLoop(true)
			}
			return nil
		})
	}
	m.group = &g
}

// Shutdown ends the barrier, waits for every helper thread to notice
// and return, clears the thread map, and releases each CoreRunner.
func (m *CpuManager) Shutdown() {
	m.barrier.NotifyEnd()
	if m.settings.UseMultiCore && m.group != nil {
		m.group.Wait()
	}
	m.threadMap.clear()
	for i := range m.cores {
		if m.cores[i] != nil {
			m.cores[i].Shutdown()
		}
	}
	if m.gdb != nil {
		m.gdb.Shutdown(0)
	}
}

// GetCurrentCoreRunner returns the CoreRunner the calling host thread
// is driving. In multi-core mode this is a ThreadToCoreMap lookup that
// panics on a miss, the same fatal-assert policy
// cpu_core_manager.cpp's GetCurrentCore uses. In single-core mode it
// returns whichever core RunLoop is currently dispatching.
func (m *CpuManager) GetCurrentCoreRunner() *CoreRunner {
	if m.settings.UseMultiCore {
		r, ok := m.threadMap.lookup(hostThreadID())
		if !ok {
			panic("cpu_manager: calling host thread is not bound to any CoreRunner")
		}
		return r
	}
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	return m.cores[m.activeCore]
}

// RunLoop drives every core cooperatively from the calling thread, for
// single-core mode. tight is forwarded to each CoreRunner.RunLoop
// call. Matches cpu_manager.cpp's RunLoop: service one debugger
// packet, refill the timing budget, then dispatch cores 0..3 in order
// until none can run, the halt flag is observed, or, while a debugger
// is attached, gdbstub_loops passes have elapsed. Checking halt_flag
// here (rather than only inside each CoreRunner) matters because a
// halted CoreRunner.RunLoop returns without advancing its timing
// budget, so CanCurrentContextRun would otherwise stay true forever
// and, with no debugger connected to increment numLoops, spin this
// thread indefinitely instead of returning to let a new connection be
// accepted.
func (m *CpuManager) RunLoop(tight bool) {
	if m.gdb != nil && m.gdb.IsServerEnabled() {
		m.gdb.HandlePacket()
	}

	m.timing.ResetRun()
	numLoops := 0
	for {
		if m.gdb != nil && m.gdb.GetCpuHaltFlag() {
			break
		}
		keepRunning := false
		for i := CoreIndex(0); i < NumCores; i++ {
			m.activeMu.Lock()
			m.activeCore = i
			m.activeMu.Unlock()

			m.timing.SwitchContext(i)
			if m.timing.CanCurrentContextRun() {
				m.cores[i].RunLoop(tight)
			}
			if m.timing.CanCurrentContextRun() {
				keepRunning = true
			}
		}
		if m.gdb != nil && m.gdb.IsConnected() {
			numLoops++
		}
		if !(keepRunning && numLoops < m.settings.GdbStubLoops) {
			break
		}
	}
}

// InvalidateAllInstructionCaches clears every core's instruction
// cache, for use after a system-wide executable page remap. Not part
// of spec.md's distilled operation list; recovered from
// cpu_core_manager.cpp per SPEC_FULL.md.
func (m *CpuManager) InvalidateAllInstructionCaches() {
	for _, c := range m.cores {
		if c != nil {
			c.arch.ClearInstructionCache()
		}
	}
}

// ExclusiveMonitor returns the shared exclusive monitor.
func (m *CpuManager) ExclusiveMonitor() *ExclusiveMonitor { return m.monitor }

// Barrier returns the shared shutdown barrier.
func (m *CpuManager) Barrier() *Barrier { return m.barrier }

func (m *CpuManager) setFocus(core CoreIndex) {
	m.focusMu.Lock()
	m.focusedCore = core
	m.focusMu.Unlock()
}

func (m *CpuManager) focus() CoreIndex {
	m.focusMu.Lock()
	defer m.focusMu.Unlock()
	return m.focusedCore
}

// The methods below implement GdbTarget, scoped to whichever core last
// reported a fault (core 0 until one does).

func (m *CpuManager) CurrentThread() ThreadHandle {
	core := m.focus()
	if m.scheds[core] == nil {
		return NoThread
	}
	return m.scheds[core].GetCurrentThread(core)
}

func (m *CpuManager) ReadRegisters(thread ThreadHandle) []uint64 {
	core := m.focus()
	arch := m.cores[core].arch
	names := arch.RegisterNames()
	out := make([]uint64, len(names))
	for i, n := range names {
		v, _ := arch.ReadRegister(n)
		out[i] = v
	}
	return out
}

func (m *CpuManager) WriteRegisters(thread ThreadHandle, values []uint64) bool {
	core := m.focus()
	arch := m.cores[core].arch
	names := arch.RegisterNames()
	if len(values) != len(names) {
		return false
	}
	ok := true
	for i, n := range names {
		if !arch.WriteRegister(n, values[i]) {
			ok = false
		}
	}
	return ok
}

// ReadMemory and WriteMemory have no guest memory bus to serve: this
// driver's scope stops at the core/scheduler/timing boundary, and no
// MemoryBus component exists in SPEC_FULL.md. m/M packets therefore
// report failure rather than fabricating a backing store.
func (m *CpuManager) ReadMemory(addr uint64, size int) ([]byte, bool) { return nil, false }
func (m *CpuManager) WriteMemory(addr uint64, data []byte) bool      { return false }

func (m *CpuManager) StepThread(thread ThreadHandle) {
	core := m.focus()
	if m.cores[core] != nil {
		m.cores[core].SingleStep()
	}
}
