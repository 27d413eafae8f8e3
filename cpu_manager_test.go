package main

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T, multiCore bool) *CpuManager {
	t.Helper()
	settings := DefaultSettings()
	settings.UseMultiCore = multiCore
	settings.TimingSliceBudget = 1
	gdb := NewGdbServer()

	manager := NewCpuManager(settings, gdb, func(idx CoreIndex) ArchCore {
		return newLoopArchCore(4)
	}, func(idx CoreIndex) PerCoreScheduler {
		return newRoundRobinScheduler()
	})
	manager.Initialize()
	for i := CoreIndex(0); i < NumCores; i++ {
		manager.scheds[i].(*roundRobinScheduler).SetRunnable(i, ThreadHandle(uint64(i)+1))
	}
	return manager
}

// TestCpuManagerRunLoopDispatchesEachCoreInOrder covers S4: a single
// RunLoop pass with a one-slice timing budget must dispatch cores
// 0..3 exactly once each and then stop.
func TestCpuManagerRunLoopDispatchesEachCoreInOrder(t *testing.T) {
	manager := newTestManager(t, false)
	manager.StartThreads()
	defer manager.Shutdown()

	manager.RunLoop(true)

	for i := CoreIndex(0); i < NumCores; i++ {
		arch := manager.cores[i].arch.(*loopArchCore)
		if arch.pc.Load() == 0 {
			t.Fatalf("core %d never ran", i)
		}
	}
}

// TestCpuManagerShutdownStopsAllHelperThreads covers S5: Shutdown must
// return promptly and leave the thread map empty even in multi-core
// mode.
func TestCpuManagerShutdownStopsAllHelperThreads(t *testing.T) {
	manager := newTestManager(t, true)
	manager.StartThreads()

	// Give the helper goroutines a moment to actually start looping.
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		manager.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return promptly")
	}

	if _, ok := manager.threadMap.lookup(hostThreadID()); ok {
		t.Fatal("expected thread map to be cleared after Shutdown")
	}
}

func TestCpuManagerGetCurrentCoreRunnerSingleCore(t *testing.T) {
	manager := newTestManager(t, false)
	manager.StartThreads()
	defer manager.Shutdown()

	if manager.GetCurrentCoreRunner() != manager.cores[0] {
		t.Fatal("expected single-core mode to start focused on core 0")
	}
}

func TestCpuManagerInvalidateAllInstructionCaches(t *testing.T) {
	manager := newTestManager(t, false)
	manager.StartThreads()
	defer manager.Shutdown()

	// Must not panic even though the reference ArchCore's invalidation
	// hook is a no-op; this exercises the wiring, not cache semantics.
	manager.InvalidateAllInstructionCaches()
}
