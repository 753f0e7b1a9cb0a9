// Package timer implements the DMG's DIV/TIMA/TMA/TAC timer.
package timer

import (
	"bytes"
	"encoding/gob"
)

// Timer models the 16-bit internal divider and its TIMA prescaler.
// TIMA increments on a falling edge of a TAC-selected divider bit, matching
// real hardware rather than a plain modulo counter: changing TAC or writing
// DIV can itself cause a spurious increment if it flips the watched bit from
// 1 to 0.
type Timer struct {
	divInternal uint16
	tima        byte
	tma         byte
	tac         byte // lower 3 bits used (bit2 enable, bits1-0 rate select)

	// reloadDelay counts down the 4 t-cycles between a TIMA overflow and the
	// TMA reload + interrupt request; writes to TIMA during the delay cancel it.
	reloadDelay int
}

// New returns a Timer in its power-on state (all registers zero).
func New() *Timer { return &Timer{} }

// DIV returns the upper 8 bits of the internal divider (register FF04).
func (t *Timer) DIV() byte { return byte(t.divInternal >> 8) }

// TIMA returns register FF05.
func (t *Timer) TIMA() byte { return t.tima }

// TMA returns register FF06.
func (t *Timer) TMA() byte { return t.tma }

// TAC returns register FF07 with the unused upper bits read as 1.
func (t *Timer) TAC() byte { return 0xF8 | (t.tac & 0x07) }

// WriteDIV resets the internal divider. A reset that flips the
// currently-watched bit from 1 to 0 increments TIMA.
func (t *Timer) WriteDIV() {
	before := t.input()
	t.divInternal = 0
	if before && !t.input() {
		t.incrementTIMA()
	}
}

// WriteTIMA writes TIMA directly, canceling any pending TMA reload.
func (t *Timer) WriteTIMA(v byte) {
	t.tima = v
	t.reloadDelay = 0
}

// WriteTMA writes TMA.
func (t *Timer) WriteTMA(v byte) { t.tma = v }

// WriteTAC writes TAC. Changing the enable bit or rate selector can itself
// flip the watched divider bit from 1 to 0, incrementing TIMA.
func (t *Timer) WriteTAC(v byte) {
	before := t.input()
	t.tac = v & 0x07
	if before && !t.input() {
		t.incrementTIMA()
	}
}

// Tick advances the timer by the given number of t-cycles, returning true if
// TIMA overflowed and reloaded from TMA this call (the caller should set the
// Timer interrupt flag bit).
func (t *Timer) Tick(cycles int) (interrupt bool) {
	for i := 0; i < cycles; i++ {
		before := t.input()
		t.divInternal++
		falling := before && !t.input()

		if t.reloadDelay > 0 {
			t.reloadDelay--
			if t.reloadDelay == 0 {
				t.tima = t.tma
				interrupt = true
			}
		}

		if falling {
			t.incrementTIMA()
		}
	}
	return interrupt
}

// input reports the current timer clock input after TAC gating: the
// selected divider bit, held low whenever the timer is disabled.
func (t *Timer) input() bool {
	if t.tac&0x04 == 0 {
		return false
	}
	var bit uint
	switch t.tac & 0x03 {
	case 0x00:
		bit = 9 // 4096 Hz
	case 0x01:
		bit = 3 // 262144 Hz
	case 0x02:
		bit = 5 // 65536 Hz
	case 0x03:
		bit = 7 // 16384 Hz
	}
	return (t.divInternal>>bit)&1 != 0
}

func (t *Timer) incrementTIMA() {
	if t.reloadDelay > 0 {
		return
	}
	if t.tima == 0xFF {
		t.tima = 0x00
		t.reloadDelay = 4
		return
	}
	t.tima++
}

type state struct {
	DivInternal uint16
	TIMA        byte
	TMA         byte
	TAC         byte
	ReloadDelay int
}

// SaveState serializes the timer's internal registers.
func (t *Timer) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(state{t.divInternal, t.tima, t.tma, t.tac, t.reloadDelay})
	return buf.Bytes()
}

// LoadState restores registers previously produced by SaveState.
func (t *Timer) LoadState(data []byte) {
	var s state
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	t.divInternal, t.tima, t.tma, t.tac, t.reloadDelay = s.DivInternal, s.TIMA, s.TMA, s.TAC, s.ReloadDelay
}
