package main

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

// DevHUD is an optional small window showing each core's dispatch
// state, built the teacher's way (an ebiten.Game with Update/Draw/
// Layout) rather than introducing a second GUI toolkit. Purely a
// debugging aid: nothing in the driver depends on it running.
type DevHUD struct {
	manager *CpuManager
	gdb     *GdbServer
	beep    *beepPlayer

	clipboardReady bool
}

// NewDevHUD constructs a HUD over manager/gdb. If enableBeep is set it
// also opens an audio player for breakpoint alert tones.
func NewDevHUD(manager *CpuManager, gdb *GdbServer, enableBeep bool) *DevHUD {
	h := &DevHUD{manager: manager, gdb: gdb}
	if enableBeep {
		if p, err := newBeepPlayer(); err == nil {
			h.beep = p
		}
	}
	if err := clipboard.Init(); err == nil {
		h.clipboardReady = true
	}
	return h
}

// Run opens the HUD window and blocks until it is closed. Intended to
// be called from main's own goroutine, with the core dispatch loop
// running on others.
func (h *DevHUD) Run() error {
	ebiten.SetWindowSize(360, 200)
	ebiten.SetWindowTitle("quadcore devhud")
	return ebiten.RunGame(h)
}

var wasHalted bool

func (h *DevHUD) Update() error {
	halted := h.gdb.GetCpuHaltFlag()
	if halted && !wasHalted && h.beep != nil {
		h.beep.PlayAlert()
	}
	wasHalted = halted

	if ebiten.IsKeyPressed(ebiten.KeyC) && h.clipboardReady {
		h.copyFocusedRegisters()
	}
	return nil
}

func (h *DevHUD) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 20, G: 20, B: 24, A: 255})

	y := 20
	for i := CoreIndex(0); i < NumCores; i++ {
		state := "running"
		if h.gdb.GetCpuHaltFlag() {
			state = "halted"
		} else if s := h.manager.scheds[i]; s != nil && s.GetCurrentThread(i) == NoThread {
			state = "idle"
		}
		line := fmt.Sprintf("core %d: %s", i, state)
		drawText(screen, line, 10, y)
		y += 16
	}

	status := "no debugger attached"
	if h.gdb.IsConnected() {
		status = "debugger attached"
	}
	drawText(screen, status, 10, y+8)
	drawText(screen, "press C to copy focused registers", 10, y+28)
}

func (h *DevHUD) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 360, 200
}

func drawText(screen *ebiten.Image, s string, x, y int) {
	text.Draw(screen, s, basicfont.Face7x13, x, y, color.White)
}

func (h *DevHUD) copyFocusedRegisters() {
	regs := h.manager.ReadRegisters(h.manager.CurrentThread())
	dump := fmt.Sprintf("core %d registers: %v", h.manager.focus(), regs)
	clipboard.Write(clipboard.FmtText, []byte(dump))
}
