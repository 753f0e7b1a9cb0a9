package emu

import "testing"

func TestMachine_LoadROM_InvalidCartReturnsError(t *testing.T) {
	m := New(Config{})
	if err := m.LoadROM(make([]byte, 0x10)); err == nil {
		t.Fatalf("expected error loading a truncated ROM")
	}
	if m.Loaded() {
		t.Fatalf("machine should not report loaded after a failed LoadROM")
	}
}

func TestMachine_LoadROM_SetsPostBootState(t *testing.T) {
	m := New(Config{})
	if err := m.LoadROM(make([]byte, 0x8000)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if !m.Loaded() {
		t.Fatalf("machine should report loaded after a successful LoadROM")
	}
	if m.c.PC != 0x0100 {
		t.Fatalf("PC after no-boot load got %#04x want 0x0100", m.c.PC)
	}
}

func TestMachine_StepFrame_AdvancesCyclesAndRendersFrame(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x18 // JR -2 (infinite loop), so the frame always has work to do
	rom[0x0101] = 0xFE
	m := New(Config{})
	if err := m.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	m.StepFrame()
	fb := m.Framebuffer()
	if len(fb) != 160*144*4 {
		t.Fatalf("framebuffer size got %d want %d", len(fb), 160*144*4)
	}
	// 70224 cycles move DIV (one step per 256 cycles) from 0 to 274&0xFF = 18.
	if div := m.b.Read(0xFF04); div != 18 {
		t.Fatalf("DIV after one frame got %d want 18", div)
	}
	// Zeroed VRAM with BGP=0xFC renders every pixel as white.
	if fb[0] != 0xFF || fb[3] != 0xFF {
		t.Fatalf("pixel 0 got RGBA %v want white", fb[0:4])
	}
}

func TestMachine_SetButtons_RaisesJoypadInterrupt(t *testing.T) {
	m := New(Config{})
	if err := m.LoadROM(make([]byte, 0x8000)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	m.SetButtons(Buttons{A: true})
	if v := m.b.Read(0xFF0F); v&(1<<4) == 0 {
		t.Fatalf("expected joypad IF bit set after pressing A, IF=%#02x", v)
	}
}

func TestMachine_SaveLoadStateRoundTrip(t *testing.T) {
	m := New(Config{})
	if err := m.LoadROM(make([]byte, 0x8000)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	m.b.Write(0xC000, 0x42)
	data := m.SaveState()

	m2 := New(Config{})
	if err := m2.LoadROM(make([]byte, 0x8000)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	m2.LoadState(data)
	if v := m2.b.Read(0xC000); v != 0x42 {
		t.Fatalf("WRAM after restore got %#02x want 0x42", v)
	}
}

func TestMachine_SaveBattery_NoBatteryCartridge(t *testing.T) {
	m := New(Config{})
	if err := m.LoadROM(make([]byte, 0x8000)); err != nil { // MBC0, no battery
		t.Fatalf("LoadROM: %v", err)
	}
	if _, ok := m.SaveBattery(); ok {
		t.Fatalf("MBC0 ROM-only cartridge should report no battery RAM")
	}
}
