// Package emu wires the CPU, bus, and cartridge into a single orchestrator
// that a host (a CLI runner or a windowed UI) can drive frame by frame.
package emu

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/bus"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cart"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/joypad"
	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/ppu"
)

// FrameCycles is the number of CPU t-cycles in one DMG video frame:
// 154 lines * 456 dots.
const FrameCycles = 154 * 456

// Buttons is the host-facing joypad state; set fields mean pressed.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= joypad.Right
	}
	if b.Left {
		m |= joypad.Left
	}
	if b.Up {
		m |= joypad.Up
	}
	if b.Down {
		m |= joypad.Down
	}
	if b.A {
		m |= joypad.A
	}
	if b.B {
		m |= joypad.B
	}
	if b.Select {
		m |= joypad.Select
	}
	if b.Start {
		m |= joypad.Start
	}
	return m
}

// Machine orchestrates one emulated console: a cartridge plugged into a
// bus, a CPU driving it, and the host-facing framebuffer/battery-RAM/save
// state contract built on top.
type Machine struct {
	cfg Config

	c *cpu.CPU
	b *bus.Bus

	fb []byte // owned RGBA 160x144x4 copy, refreshed by StepFrame

	romPath     string
	romTitle    string
	pendingBoot []byte
	serial      io.Writer

	buttons Buttons
}

// New creates a Machine with no cartridge loaded. Call LoadROM or
// LoadROMFromFile before stepping it.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg, fb: make([]byte, 160*144*4)}
}

// SetBootROM registers a DMG boot ROM to run from 0x0000 until the game
// disables it via the FF50 register. Can be called before or after a
// cartridge is loaded; either way the next ROM load (or this call, if a
// cartridge is already loaded) resets the CPU to the boot entry point.
func (m *Machine) SetBootROM(data []byte) {
	m.pendingBoot = data
	if m.b != nil {
		m.applyBoot()
	}
}

func (m *Machine) applyBoot() {
	if len(m.pendingBoot) >= 0x100 {
		m.b.SetBootROM(m.pendingBoot)
		m.c.SP = 0xFFFE
		m.c.PC = 0x0000
		m.c.IME = false
		return
	}
	m.c.ResetNoBoot()
	m.c.SetPC(0x0100)
	// DMG post-boot IO defaults, matching what the real boot ROM leaves behind.
	m.b.Write(0xFF00, 0xCF)
	m.b.Write(0xFF05, 0x00)
	m.b.Write(0xFF06, 0x00)
	m.b.Write(0xFF07, 0x00)
	m.b.Write(0xFF40, 0x91)
	m.b.Write(0xFF42, 0x00)
	m.b.Write(0xFF43, 0x00)
	m.b.Write(0xFF45, 0x00)
	m.b.Write(0xFF47, 0xFC)
	m.b.Write(0xFF48, 0xFF)
	m.b.Write(0xFF49, 0xFF)
	m.b.Write(0xFF4A, 0x00)
	m.b.Write(0xFF4B, 0x00)
	m.b.Write(0xFFFF, 0x00)
}

// SetSerialWriter sets a sink for bytes written through the serial port
// (FF01/FF02). Tests use this to observe Blargg-style "Passed"/"Failed"
// banners; a real cartridge rarely uses it.
func (m *Machine) SetSerialWriter(w io.Writer) {
	m.serial = w
	if m.b != nil {
		m.b.SetSerialWriter(w)
	}
}

// LoadROM parses rom and wires a fresh bus+cpu around it, discarding any
// previously loaded cartridge. It is the only place cartridge construction
// can fail.
func (m *Machine) LoadROM(rom []byte) error {
	b, err := bus.New(rom)
	if err != nil {
		return fmt.Errorf("emu: load ROM: %w", err)
	}
	m.b = b
	m.c = cpu.New(b)
	if m.serial != nil {
		m.b.SetSerialWriter(m.serial)
	}
	m.romTitle = ""
	if h, err := cart.ParseHeader(rom); err == nil {
		m.romTitle = h.Title
	}
	m.applyBoot()
	return nil
}

// ROMTitle returns the cartridge header's title string, or "" if none is
// loaded or the header couldn't be parsed.
func (m *Machine) ROMTitle() string { return m.romTitle }

// LoadROMFromFile reads path and loads it as the active cartridge,
// recording path for ROMPath()/battery-save placement.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emu: read ROM: %w", err)
	}
	if err := m.LoadROM(data); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// LoadCartridge is a convenience wrapper that sets an optional boot ROM
// before loading rom, matching the common CLI call pattern of loading both
// at once.
func (m *Machine) LoadCartridge(rom, boot []byte) error {
	if len(boot) >= 0x100 {
		m.pendingBoot = boot
	}
	return m.LoadROM(rom)
}

// ROMPath returns the path LoadROMFromFile was last called with, or "".
func (m *Machine) ROMPath() string { return m.romPath }

// Loaded reports whether a cartridge is currently wired in.
func (m *Machine) Loaded() bool { return m.b != nil }

// LoadBattery restores external (battery-backed) RAM previously produced by
// SaveBattery. Returns false if the cartridge has no battery RAM.
func (m *Machine) LoadBattery(data []byte) bool {
	if m.b == nil {
		return false
	}
	bb, ok := m.b.Cart().(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveBattery returns the cartridge's external RAM for persistence, or
// ok=false if the cartridge has none.
func (m *Machine) SaveBattery() (data []byte, ok bool) {
	if m.b == nil {
		return nil, false
	}
	bb, isBattery := m.b.Cart().(cart.BatteryBacked)
	if !isBattery {
		return nil, false
	}
	return bb.SaveRAM(), true
}

// SaveState serializes the bus (memory, IO state, cartridge banking) using
// encoding/gob. CPU registers are not part of the saved state.
func (m *Machine) SaveState() []byte {
	if m.b == nil {
		return nil
	}
	return m.b.SaveState()
}

// LoadState restores a state previously produced by SaveState.
func (m *Machine) LoadState(data []byte) {
	if m.b != nil {
		m.b.LoadState(data)
	}
}

// SaveStateToFile writes SaveState()'s output to path.
func (m *Machine) SaveStateToFile(path string) error {
	return os.WriteFile(path, m.SaveState(), 0644)
}

// LoadStateFromFile reads path and restores it via LoadState.
func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emu: load state: %w", err)
	}
	m.LoadState(data)
	return nil
}

// ResetPostBoot resets CPU registers and the common IO defaults to DMG
// post-boot values without reloading the cartridge. WRAM/VRAM/OAM contents
// from the previous run are left as-is, matching a console reset button
// more than a power cycle.
func (m *Machine) ResetPostBoot() {
	if m.b == nil {
		return
	}
	saved := m.pendingBoot
	m.pendingBoot = nil
	m.applyBoot()
	m.pendingBoot = saved
}

// ResetWithBoot reinitializes the machine to run the registered boot ROM
// from 0x0000, if one was set via SetBootROM; otherwise it behaves like
// ResetPostBoot.
func (m *Machine) ResetWithBoot() {
	if m.b == nil {
		return
	}
	m.applyBoot()
}

// SetButtons replaces the currently pressed buttons and feeds the change
// through to the joypad matrix, raising an interrupt on any newly-pressed
// button as real hardware does.
func (m *Machine) SetButtons(b Buttons) {
	m.buttons = b
	if m.b != nil {
		m.b.SetJoypadState(b.mask())
	}
}

// Step advances the CPU by one instruction (first servicing at most one
// pending interrupt), returning the number of cycles consumed.
func (m *Machine) Step() int {
	if m.c == nil {
		return 0
	}
	if m.cfg.Trace {
		pc := m.c.PC
		op := m.b.Read(pc)
		log.Printf("PC=%04X OP=%02X", pc, op)
	}
	cycles := m.c.HandleInterrupt()
	cycles += m.c.Step()
	return cycles
}

// runFrame advances the machine by exactly one video frame's worth of
// cycles (FrameCycles t-cycles), regardless of how many instructions that
// takes.
func (m *Machine) runFrame() {
	if m.c == nil {
		return
	}
	budget := 0
	for budget < FrameCycles {
		budget += m.Step()
	}
}

// StepFrame advances one frame and refreshes Framebuffer() with the
// resulting pixels.
func (m *Machine) StepFrame() {
	m.runFrame()
	m.syncFramebuffer()
}

// StepFrameNoRender advances one frame without copying pixels into the
// host-facing framebuffer, for maximum throughput when only serial output
// or save RAM is being observed (e.g. running Blargg test ROMs).
func (m *Machine) StepFrameNoRender() {
	m.runFrame()
}

func (m *Machine) syncFramebuffer() {
	if m.b == nil || m.b.PPU() == nil {
		return
	}
	copy(m.fb, m.b.PPU().Frame().Pix[:])
}

// Frame returns the PPU's live frame buffer directly (no copy); callers
// must not retain it across the next Step/StepFrame call.
func (m *Machine) Frame() *ppu.Frame {
	if m.b == nil {
		return nil
	}
	return m.b.PPU().Frame()
}

// Framebuffer returns the Machine's own RGBA 160x144x4 copy of the last
// StepFrame-rendered pixels.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Run drives the machine at roughly real-time (60Hz) pacing until stop
// returns true, calling onFrame after each rendered frame. A windowed host
// (ebiten) instead drives Step/StepFrame from its own Update callback and
// never calls Run.
func (m *Machine) Run(stop func() bool, onFrame func()) {
	const frameDur = time.Second / 60
	for !stop() {
		start := time.Now()
		m.StepFrame()
		if onFrame != nil {
			onFrame()
		}
		if m.cfg.LimitFPS {
			if d := frameDur - time.Since(start); d > 0 {
				time.Sleep(d)
			}
		}
	}
}
