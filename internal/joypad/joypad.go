// Package joypad implements the DMG's column-selected button matrix.
package joypad

import (
	"bytes"
	"encoding/gob"
)

// Button bitmasks for SetState. Set bits mean "pressed".
const (
	Right = 1 << 0
	Left  = 1 << 1
	Up    = 1 << 2
	Down  = 1 << 3
	A     = 1 << 4
	B     = 1 << 5
	Select = 1 << 6
	Start  = 1 << 7
)

// Joypad models the FF00 register: two 4-bit active-low rows (directions,
// buttons) multiplexed by the column select bits written by the CPU.
type Joypad struct {
	selectBits byte // bits 5-4 as last written
	pressed    byte // Button* bitmask, set bits mean pressed
	lowerNibble byte // last computed active-low lower 4 bits, for edge detection
}

// New returns a Joypad with nothing selected and no buttons pressed.
func New() *Joypad { return &Joypad{lowerNibble: 0x0F} }

// Read returns the FF00 register value.
func (j *Joypad) Read() byte {
	res := byte(0xC0 | (j.selectBits & 0x30) | 0x0F)
	if j.selectBits&0x10 == 0 { // P14 low selects D-Pad
		if j.pressed&Right != 0 {
			res &^= 0x01
		}
		if j.pressed&Left != 0 {
			res &^= 0x02
		}
		if j.pressed&Up != 0 {
			res &^= 0x04
		}
		if j.pressed&Down != 0 {
			res &^= 0x08
		}
	}
	if j.selectBits&0x20 == 0 { // P15 low selects buttons
		if j.pressed&A != 0 {
			res &^= 0x01
		}
		if j.pressed&B != 0 {
			res &^= 0x02
		}
		if j.pressed&Select != 0 {
			res &^= 0x04
		}
		if j.pressed&Start != 0 {
			res &^= 0x08
		}
	}
	return res
}

// Select handles a write to FF00 (bits 5-4 choose which row(s) are active).
// Returns true if the edit raised the Joypad interrupt.
func (j *Joypad) Select(value byte) bool {
	j.selectBits = value & 0x30
	return j.recompute()
}

// SetState replaces which buttons are pressed (set bits mean pressed).
// Returns true if the edit raised the Joypad interrupt.
func (j *Joypad) SetState(mask byte) bool {
	j.pressed = mask
	return j.recompute()
}

// recompute derives the active-low lower nibble and reports a falling edge
// (1->0 transition) on any bit, which is the documented Joypad IRQ trigger.
func (j *Joypad) recompute() bool {
	next := byte(0x0F)
	if j.selectBits&0x10 == 0 {
		if j.pressed&Right != 0 {
			next &^= 0x01
		}
		if j.pressed&Left != 0 {
			next &^= 0x02
		}
		if j.pressed&Up != 0 {
			next &^= 0x04
		}
		if j.pressed&Down != 0 {
			next &^= 0x08
		}
	}
	if j.selectBits&0x20 == 0 {
		if j.pressed&A != 0 {
			next &^= 0x01
		}
		if j.pressed&B != 0 {
			next &^= 0x02
		}
		if j.pressed&Select != 0 {
			next &^= 0x04
		}
		if j.pressed&Start != 0 {
			next &^= 0x08
		}
	}
	falling := j.lowerNibble &^ next
	j.lowerNibble = next
	return falling != 0
}

type state struct {
	SelectBits  byte
	Pressed     byte
	LowerNibble byte
}

// SaveState serializes the joypad's registers.
func (j *Joypad) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(state{j.selectBits, j.pressed, j.lowerNibble})
	return buf.Bytes()
}

// LoadState restores registers previously produced by SaveState.
func (j *Joypad) LoadState(data []byte) {
	var s state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	j.selectBits, j.pressed, j.lowerNibble = s.SelectBits, s.Pressed, s.LowerNibble
}
