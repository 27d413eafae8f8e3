package main

import "sync"

// NumCores is the fixed core count this driver supports.
const NumCores = 4

// CoreIndex identifies one of the driver's fixed set of cores.
type CoreIndex int

type reservation struct {
	addr, end uint64
}

func (r reservation) overlaps(addr, width uint64) bool {
	end := addr + width
	return addr < r.end && end > r.addr
}

// ExclusiveMonitor tracks per-core load-linked/store-conditional
// reservations. A single mutex makes Reserve/CheckAndClear/ClearAll
// linearizable with respect to each other, the same guarding style
// debug_monitor.go uses for its shared CPU-state map.
type ExclusiveMonitor struct {
	mu           sync.Mutex
	reservations map[CoreIndex]reservation
}

// NewExclusiveMonitor returns a monitor with no reservations held.
func NewExclusiveMonitor() *ExclusiveMonitor {
	return &ExclusiveMonitor{reservations: make(map[CoreIndex]reservation)}
}

// Reserve records that core has a live reservation over
// [addr, addr+width), replacing any prior reservation for that core.
func (m *ExclusiveMonitor) Reserve(core CoreIndex, addr, width uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[core] = reservation{addr: addr, end: addr + width}
}

// CheckAndClear reports whether core held a reservation overlapping
// [addr, addr+width), clearing it if so. As a side effect it clears
// any other core's reservation that overlaps the same range,
// regardless of the calling core's own result: a store from any core
// invalidates every other core's overlapping reservation, matching
// ARM-style exclusive monitor semantics where the check is local but
// the invalidation is global.
func (m *ExclusiveMonitor) CheckAndClear(core CoreIndex, addr, width uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	own, matched := m.reservations[core]
	matched = matched && own.overlaps(addr, width)
	if matched {
		delete(m.reservations, core)
	}

	for c, r := range m.reservations {
		if c != core && r.overlaps(addr, width) {
			delete(m.reservations, c)
		}
	}

	return matched
}

// ClearAll drops core's reservation, if any, without affecting other
// cores. Nothing in the driver itself calls it: neither a context
// switch nor CoreRunner.Shutdown clears this monitor.
func (m *ExclusiveMonitor) ClearAll(core CoreIndex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reservations, core)
}
