package main

import "testing"

func TestEncodeGdbPacketChecksum(t *testing.T) {
	packet := encodeGdbPacket("OK")
	want := "$OK#9a" // 'O'=0x4f + 'K'=0x4b = 0x9a
	if string(packet) != want {
		t.Fatalf("got %q, want %q", packet, want)
	}
}

func TestParseZPacketInsertExecute(t *testing.T) {
	insert, ty, addr, ok := parseZPacket("Z0,1000,4")
	if !ok || !insert || ty != BreakpointExecute || addr != 0x1000 {
		t.Fatalf("got insert=%v ty=%v addr=%x ok=%v", insert, ty, addr, ok)
	}
}

func TestParseZPacketRemoveAccess(t *testing.T) {
	insert, ty, addr, ok := parseZPacket("z4,2000,1")
	if !ok || insert || ty != BreakpointAccess || addr != 0x2000 {
		t.Fatalf("got insert=%v ty=%v addr=%x ok=%v", insert, ty, addr, ok)
	}
}

func TestParseZPacketMalformed(t *testing.T) {
	if _, _, _, ok := parseZPacket("Z0,bad"); ok {
		t.Fatal("expected malformed packet to fail to parse")
	}
}

func TestFormatStopReply(t *testing.T) {
	got := formatStopReply(5, 0x2a)
	want := "T05thread:2a;"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLibraryListXML(t *testing.T) {
	modules := []ModuleInfo{{Name: "main", Begin: 0x80000000, AddElfExt: true}}
	xml := libraryListXML(modules)
	want := `<library-list><library name="main.elf"><segment address="0x80000000"/></library></library-list>`
	if xml != want {
		t.Fatalf("got %q, want %q", xml, want)
	}
}
