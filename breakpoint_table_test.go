package main

import "testing"

func TestBreakpointTableInsertDuplicateErrors(t *testing.T) {
	bt := NewBreakpointTable()
	if err := bt.Insert(0x400, BreakpointExecute); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := bt.Insert(0x400, BreakpointExecute); err == nil {
		t.Fatal("expected duplicate insert to error")
	}
}

func TestBreakpointTableAccessMatchesReadAndWrite(t *testing.T) {
	bt := NewBreakpointTable()
	bt.Insert(0x1000, BreakpointRead)
	bt.Insert(0x2000, BreakpointWrite)

	if !bt.CheckBreakpoint(0x1000, BreakpointAccess) {
		t.Fatal("access check should match a read breakpoint")
	}
	if !bt.CheckBreakpoint(0x2000, BreakpointAccess) {
		t.Fatal("access check should match a write breakpoint")
	}
	if bt.CheckBreakpoint(0x3000, BreakpointAccess) {
		t.Fatal("access check should not match an unrelated address")
	}
}

func TestBreakpointTableGetNextFromAddress(t *testing.T) {
	bt := NewBreakpointTable()
	bt.Insert(0x100, BreakpointExecute)
	bt.Insert(0x300, BreakpointExecute)
	bt.Insert(0x200, BreakpointExecute)

	next := bt.GetNextBreakpointFromAddress(0x150, BreakpointExecute)
	if next.Type != BreakpointExecute || next.Address != 0x200 {
		t.Fatalf("expected next breakpoint at 0x200, got %+v", next)
	}

	none := bt.GetNextBreakpointFromAddress(0x301, BreakpointExecute)
	if none.Type != BreakpointNone {
		t.Fatalf("expected no breakpoint past the last one, got %+v", none)
	}
}

func TestBreakpointTableRemoveAndClearAll(t *testing.T) {
	bt := NewBreakpointTable()
	bt.Insert(0x10, BreakpointWrite)

	if !bt.Remove(0x10, BreakpointWrite) {
		t.Fatal("expected Remove to report an existing breakpoint")
	}
	if bt.Remove(0x10, BreakpointWrite) {
		t.Fatal("expected second Remove to report nothing removed")
	}

	bt.Insert(0x20, BreakpointExecute)
	bt.Insert(0x30, BreakpointRead)
	bt.ClearAll()
	if bt.CheckBreakpoint(0x20, BreakpointExecute) || bt.CheckBreakpoint(0x30, BreakpointRead) {
		t.Fatal("expected ClearAll to remove every breakpoint")
	}
}
