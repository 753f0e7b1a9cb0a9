package cart

import "testing"

func TestNew_MBC0(t *testing.T) {
	rom := buildROM("MBC0GAME", 0x00, 0x00, 0x00, 32*1024)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*MBC0); !ok {
		t.Fatalf("expected *MBC0, got %T", c)
	}
}

func TestNew_UnknownCartType(t *testing.T) {
	rom := buildROM("WEIRD", 0x2B, 0x00, 0x00, 32*1024)
	if _, err := New(rom); err == nil {
		t.Fatalf("expected error for unknown cartridge type")
	}
}

func TestNew_UnknownROMSize(t *testing.T) {
	rom := buildROM("WEIRD", 0x00, 0x20, 0x00, 32*1024)
	if _, err := New(rom); err == nil {
		t.Fatalf("expected error for unknown ROM size code")
	}
}

func TestNew_TruncatedROM(t *testing.T) {
	if _, err := New(make([]byte, 0x10)); err == nil {
		t.Fatalf("expected error for truncated ROM")
	}
}

func TestNew_MBC1SaveStateRoundTrip(t *testing.T) {
	rom := buildROM("SAVEGAME", 0x03, 0x01, 0x02, 64*1024)
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Write(0x0000, 0x0A) // enable RAM
	c.Write(0xA000, 0x42)

	data := c.SaveState()
	c2, _ := New(rom)
	c2.LoadState(data)
	c2.Write(0x0000, 0x0A)
	if got := c2.Read(0xA000); got != 0x42 {
		t.Fatalf("restored RAM got %02x want 42", got)
	}
}
