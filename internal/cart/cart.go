// Package cart implements cartridge header parsing and the MBC0/1/3/5 bank
// controllers found in DMG cartridges.
package cart

import "fmt"

// Cartridge defines the minimal interface the bus needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000–0x7FFF) and external RAM writes (0xA000–0xBFFF).
	Write(addr uint16, value byte)
	// SaveState serializes internal banking registers and external RAM for save states.
	SaveState() []byte
	// LoadState restores state previously produced by SaveState.
	LoadState(data []byte)
}

// BatteryBacked is an optional interface for cartridges with external RAM
// that should be persisted to a .sav file across sessions.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// HasBattery reports whether the cartridge type byte indicates battery-backed RAM.
func HasBattery(cartType byte) bool {
	switch cartType {
	case 0x03, 0x06, 0x09, 0x0D, 0x10, 0x13, 0x1B, 0x1E, 0xFF:
		return true
	default:
		return false
	}
}

// New parses the cartridge header and picks an implementation. It returns an
// error for a truncated ROM, an unknown cartridge type, or an unrecognized
// ROM/RAM size code — construction is the only place cartridge loading can
// fail; the hot read/write path never does.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if h.ROMSizeBytes == 0 {
		return nil, fmt.Errorf("cart: unknown ROM size code %#02x", h.ROMSizeCode)
	}
	switch h.RAMSizeCode {
	case 0x00, 0x01, 0x02, 0x03, 0x04, 0x05:
	default:
		return nil, fmt.Errorf("cart: unknown RAM size code %#02x", h.RAMSizeCode)
	}
	switch h.CartType {
	case 0x00:
		return NewMBC0(rom), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h.RAMSizeBytes), nil
	default:
		return nil, fmt.Errorf("cart: unknown cartridge type %#02x", h.CartType)
	}
}
