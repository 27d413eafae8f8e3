package main

import "flag"

// Settings holds every command-line-configurable knob this driver
// exposes, populated by ParseSettings the same way main.go's teacher
// ancestor filled its own flat option struct from flag.
type Settings struct {
	UseMultiCore bool

	GdbStubEnabled bool
	GdbStubPort    uint
	GdbStubLoops   int

	TimingSliceBudget int

	DevHUDEnabled bool
	DevHUDBeep    bool

	LocalConsole bool
}

// DefaultSettings mirrors the values a fresh CLI invocation with no
// flags produces.
func DefaultSettings() *Settings {
	return &Settings{
		UseMultiCore:      true,
		GdbStubEnabled:    false,
		GdbStubPort:       24689,
		GdbStubLoops:      65536,
		TimingSliceBudget: 4,
		DevHUDEnabled:     false,
		DevHUDBeep:        true,
		LocalConsole:      false,
	}
}

// ParseSettings builds a Settings from args (typically os.Args[1:]),
// starting from DefaultSettings.
func ParseSettings(fs *flag.FlagSet, args []string) (*Settings, error) {
	s := DefaultSettings()

	fs.BoolVar(&s.UseMultiCore, "use-multi-core", s.UseMultiCore, "run each core on its own host thread instead of cooperatively on one")
	fs.BoolVar(&s.GdbStubEnabled, "gdbstub", s.GdbStubEnabled, "enable the GDB remote debug server")
	fs.UintVar(&s.GdbStubPort, "gdbstub-port", s.GdbStubPort, "TCP port the GDB remote debug server listens on")
	fs.IntVar(&s.GdbStubLoops, "gdbstub-loops", s.GdbStubLoops, "max single-core dispatch passes per RunLoop call while a debugger is attached")
	fs.IntVar(&s.TimingSliceBudget, "timing-slice-budget", s.TimingSliceBudget, "reference timing subsystem's per-core instruction slices per pass")
	fs.BoolVar(&s.DevHUDEnabled, "devhud", s.DevHUDEnabled, "show the optional per-core status HUD window")
	fs.BoolVar(&s.DevHUDBeep, "devhud-beep", s.DevHUDBeep, "play an alert tone when the HUD is attached and a breakpoint fires")
	fs.BoolVar(&s.LocalConsole, "local-console", s.LocalConsole, "attach a local raw-terminal debugger console instead of (or alongside) the network GDB server")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return s, nil
}
