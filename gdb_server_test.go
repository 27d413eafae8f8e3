package main

import (
	"encoding/hex"
	"fmt"
	"testing"
)

type fakeTarget struct {
	thread    ThreadHandle
	registers []uint64
	stepped   []ThreadHandle
}

func (f *fakeTarget) CurrentThread() ThreadHandle { return f.thread }
func (f *fakeTarget) ReadRegisters(thread ThreadHandle) []uint64 {
	return append([]uint64(nil), f.registers...)
}
func (f *fakeTarget) WriteRegisters(thread ThreadHandle, values []uint64) bool {
	if len(values) != len(f.registers) {
		return false
	}
	copy(f.registers, values)
	return true
}
func (f *fakeTarget) ReadMemory(addr uint64, size int) ([]byte, bool) { return nil, false }
func (f *fakeTarget) WriteMemory(addr uint64, data []byte) bool       { return false }
func (f *fakeTarget) StepThread(thread ThreadHandle)                  { f.stepped = append(f.stepped, thread) }

func TestGdbServerBreakIsMemoryBreakReadAndClear(t *testing.T) {
	g := NewGdbServer()
	g.Break(true)
	if !g.GetCpuHaltFlag() {
		t.Fatal("expected Break to set the halt flag")
	}
	if !g.IsMemoryBreak() {
		t.Fatal("expected first IsMemoryBreak call to report true")
	}
	if g.IsMemoryBreak() {
		t.Fatal("expected IsMemoryBreak to clear itself after being read")
	}
}

func TestGdbServerContinueClearsHaltAndStepFlags(t *testing.T) {
	g := NewGdbServer()
	g.Break(false)
	g.setStepFlag(ThreadHandle(1))

	g.continueExecution()

	if g.GetCpuHaltFlag() {
		t.Fatal("expected continue to clear the halt flag")
	}
	if g.GetThreadStepFlag(ThreadHandle(1)) {
		t.Fatal("expected continue to clear all step flags")
	}
}

func TestGdbServerDispatchBreakpointInsertRemove(t *testing.T) {
	g := NewGdbServer()

	reply, _ := g.dispatch("Z0,400,4")
	if reply != "OK" {
		t.Fatalf("expected OK inserting breakpoint, got %q", reply)
	}
	if !g.CheckBreakpoint(0x400, BreakpointExecute) {
		t.Fatal("expected breakpoint to be registered")
	}

	reply, _ = g.dispatch("Z0,400,4")
	if reply != "E01" {
		t.Fatalf("expected E01 on duplicate insert, got %q", reply)
	}

	reply, _ = g.dispatch("z0,400,4")
	if reply != "OK" {
		t.Fatalf("expected OK removing breakpoint, got %q", reply)
	}
	if g.CheckBreakpoint(0x400, BreakpointExecute) {
		t.Fatal("expected breakpoint to be gone after removal")
	}
}

func TestGdbServerDispatchRegisterPackets(t *testing.T) {
	g := NewGdbServer()
	target := &fakeTarget{thread: 1, registers: []uint64{0x10, 0x20}}
	g.SetTarget(target)

	reply, _ := g.dispatch("g")
	want := fmt.Sprintf("%016x%016x", uint64(0x10), uint64(0x20))
	if reply != want {
		t.Fatalf("got %q want %q", reply, want)
	}

	reply, _ = g.dispatch("p1")
	if reply != "0000000000000020" {
		t.Fatalf("got %q for p1", reply)
	}

	reply, _ = g.dispatch("P1=2a")
	if reply != "OK" {
		t.Fatalf("expected OK writing register, got %q", reply)
	}
	if target.registers[1] != 0x2a {
		t.Fatalf("expected register 1 to be updated, got %x", target.registers[1])
	}
}

func TestGdbServerDispatchVContStep(t *testing.T) {
	g := NewGdbServer()
	target := &fakeTarget{thread: 1, registers: []uint64{0}}
	g.SetTarget(target)
	g.Break(false)

	g.dispatch("vCont;s:1")

	if !g.GetThreadStepFlag(ThreadHandle(1)) {
		t.Fatal("expected vCont;s:1 to set thread 1's step flag")
	}
	if g.GetCpuHaltFlag() {
		t.Fatal("expected vCont;s to clear the halt flag so the step can run")
	}
	if len(target.stepped) != 1 || target.stepped[0] != ThreadHandle(1) {
		t.Fatalf("expected target.StepThread(1) to be called, got %v", target.stepped)
	}
}

func TestGdbServerMonitorCommandRoundTrip(t *testing.T) {
	g := NewGdbServer()
	target := &fakeTarget{thread: 1, registers: []uint64{0x42}}
	g.SetTarget(target)

	cmd := hex.EncodeToString([]byte("print(reg(0))"))
	reply, _ := g.dispatch("qRcmd," + cmd)
	raw, err := hex.DecodeString(reply)
	if err != nil {
		t.Fatalf("reply not valid hex: %v", err)
	}
	if string(raw) != "66\n" {
		t.Fatalf("got %q, want %q", raw, "66\n")
	}
}
