package apu

import (
	"bytes"
	"encoding/gob"
)

// APU models the DMG sound registers (NR10-NR52 plus wave RAM) without
// synthesizing audio: reads and writes behave like real hardware (unused
// bits read back as 1, write-only fields are masked), but no channel is
// actually mixed or clocked. Games that poll status bits or wave RAM during
// playback still see consistent values; nothing reaches an audio device.
type APU struct {
	enabled bool

	nr50, nr51 byte

	ch1 chSquare
	ch2 chSquare
	ch3 chWave
	ch4 chNoise
}

type chSquare struct {
	enabled bool
	duty    byte
	length  byte // raw 0..63 countdown value as last written
	lenEn   bool
	vol     byte
	envDir  bool
	envPer  byte
	freq    uint16

	sweepPer   byte // CH1 only; always zero on CH2
	sweepNeg   bool
	sweepShift byte
}

type chWave struct {
	enabled bool
	dacEn   bool
	length  byte
	lenEn   bool
	volCode byte
	freq    uint16
	ram     [16]byte // FF30-FF3F, 32 packed 4-bit samples
}

type chNoise struct {
	enabled bool
	length  byte
	lenEn   bool
	vol     byte
	envDir  bool
	envPer  byte
	shift   byte
	width7  bool
	divSel  byte
}

// New creates a powered-on APU with DMG post-boot register defaults.
// sampleRate is accepted for API symmetry with a real synthesizer but is
// unused since this stub never produces samples.
func New(sampleRate int) *APU {
	a := &APU{enabled: true}
	a.nr50 = 0x77
	a.nr51 = 0xF3
	return a
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// CPURead reads an APU register, applying the same unused-bits-read-as-1
// masking real DMG hardware does.
func (a *APU) CPURead(addr uint16) byte {
	switch addr {
	case 0xFF10: // NR10
		n := (a.ch1.sweepPer & 7) << 4
		if a.ch1.sweepNeg {
			n |= 1 << 3
		}
		return 0x80 | n | (a.ch1.sweepShift & 7)
	case 0xFF11: // NR11
		return (a.ch1.duty << 6) | 0x3F
	case 0xFF12: // NR12
		return (a.ch1.vol << 4) | (boolByte(a.ch1.envDir) << 3) | (a.ch1.envPer & 7)
	case 0xFF13: // NR13 (write-only)
		return 0xFF
	case 0xFF14: // NR14
		return 0xBF | (boolByte(a.ch1.lenEn) << 6)
	case 0xFF16: // NR21
		return (a.ch2.duty << 6) | 0x3F
	case 0xFF17: // NR22
		return (a.ch2.vol << 4) | (boolByte(a.ch2.envDir) << 3) | (a.ch2.envPer & 7)
	case 0xFF18: // NR23 (write-only)
		return 0xFF
	case 0xFF19: // NR24
		return 0xBF | (boolByte(a.ch2.lenEn) << 6)
	case 0xFF1A: // NR30
		if a.ch3.dacEn {
			return 0xFF
		}
		return 0x7F
	case 0xFF1B: // NR31 (write-only)
		return 0xFF
	case 0xFF1C: // NR32
		return 0x9F | (a.ch3.volCode << 5)
	case 0xFF1D: // NR33 (write-only)
		return 0xFF
	case 0xFF1E: // NR34
		return 0xBF | (boolByte(a.ch3.lenEn) << 6)
	case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		return a.ch3.ram[addr-0xFF30]
	case 0xFF20: // NR41 (write-only)
		return 0xFF
	case 0xFF21: // NR42
		return (a.ch4.vol << 4) | (boolByte(a.ch4.envDir) << 3) | (a.ch4.envPer & 7)
	case 0xFF22: // NR43
		return (a.ch4.shift << 4) | (boolByte(a.ch4.width7) << 3) | (a.ch4.divSel & 7)
	case 0xFF23: // NR44
		return 0xBF | (boolByte(a.ch4.lenEn) << 6)
	case 0xFF24:
		return a.nr50
	case 0xFF25:
		return a.nr51
	case 0xFF26: // NR52
		chFlags := byte(0)
		if a.ch1.enabled {
			chFlags |= 1 << 0
		}
		if a.ch2.enabled {
			chFlags |= 1 << 1
		}
		if a.ch3.enabled {
			chFlags |= 1 << 2
		}
		if a.ch4.enabled {
			chFlags |= 1 << 3
		}
		return 0x70 | (boolByte(a.enabled) << 7) | chFlags
	default:
		return 0xFF
	}
}

// CPUWrite writes an APU register. Writes to any register while the APU is
// powered off (NR52 bit7 clear) are ignored, matching DMG behavior, except
// for wave RAM and the length-counter fields of NRx1/NR41 which stay
// writable even while powered off.
func (a *APU) CPUWrite(addr uint16, v byte) {
	if !a.enabled {
		switch addr {
		case 0xFF11:
			a.ch1.length = v & 0x3F
			return
		case 0xFF16:
			a.ch2.length = v & 0x3F
			return
		case 0xFF1B:
			a.ch3.length = v
			return
		case 0xFF20:
			a.ch4.length = v & 0x3F
			return
		case 0xFF26:
			if (v & 0x80) != 0 {
				a.enabled = true
			}
			return
		case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
			0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
			a.ch3.ram[addr-0xFF30] = v
			return
		default:
			return
		}
	}

	switch addr {
	case 0xFF10:
		a.ch1.sweepPer = (v >> 4) & 7
		a.ch1.sweepNeg = (v & (1 << 3)) != 0
		a.ch1.sweepShift = v & 7
	case 0xFF11:
		a.ch1.duty = (v >> 6) & 3
		a.ch1.length = v & 0x3F
	case 0xFF12:
		a.ch1.vol = (v >> 4) & 0x0F
		a.ch1.envDir = (v & (1 << 3)) != 0
		a.ch1.envPer = v & 7
		if (v & 0xF8) == 0 {
			a.ch1.enabled = false
		}
	case 0xFF13:
		a.ch1.freq = (a.ch1.freq & 0x0700) | uint16(v)
	case 0xFF14:
		a.ch1.lenEn = (v & (1 << 6)) != 0
		a.ch1.freq = (a.ch1.freq & 0x00FF) | (uint16(v&7) << 8)
		if (v & (1 << 7)) != 0 {
			a.trigger(&a.ch1)
		}
	case 0xFF16:
		a.ch2.duty = (v >> 6) & 3
		a.ch2.length = v & 0x3F
	case 0xFF17:
		a.ch2.vol = (v >> 4) & 0x0F
		a.ch2.envDir = (v & (1 << 3)) != 0
		a.ch2.envPer = v & 7
		if (v & 0xF8) == 0 {
			a.ch2.enabled = false
		}
	case 0xFF18:
		a.ch2.freq = (a.ch2.freq & 0x0700) | uint16(v)
	case 0xFF19:
		a.ch2.lenEn = (v & (1 << 6)) != 0
		a.ch2.freq = (a.ch2.freq & 0x00FF) | (uint16(v&7) << 8)
		if (v & (1 << 7)) != 0 {
			a.trigger(&a.ch2)
		}
	case 0xFF1A:
		a.ch3.dacEn = (v & 0x80) != 0
		if !a.ch3.dacEn {
			a.ch3.enabled = false
		}
	case 0xFF1B:
		a.ch3.length = v
	case 0xFF1C:
		a.ch3.volCode = (v >> 5) & 3
	case 0xFF1D:
		a.ch3.freq = (a.ch3.freq & 0x0700) | uint16(v)
	case 0xFF1E:
		a.ch3.lenEn = (v & (1 << 6)) != 0
		a.ch3.freq = (a.ch3.freq & 0x00FF) | (uint16(v&7) << 8)
		if (v & (1 << 7)) != 0 {
			a.ch3.enabled = a.ch3.dacEn
		}
	case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		a.ch3.ram[addr-0xFF30] = v
	case 0xFF20:
		a.ch4.length = v & 0x3F
	case 0xFF21:
		a.ch4.vol = (v >> 4) & 0x0F
		a.ch4.envDir = (v & (1 << 3)) != 0
		a.ch4.envPer = v & 7
		if (v & 0xF8) == 0 {
			a.ch4.enabled = false
		}
	case 0xFF22:
		a.ch4.shift = (v >> 4) & 0x0F
		a.ch4.width7 = (v & (1 << 3)) != 0
		a.ch4.divSel = v & 7
	case 0xFF23:
		a.ch4.lenEn = (v & (1 << 6)) != 0
		if (v & (1 << 7)) != 0 {
			a.ch4.enabled = a.ch4.vol != 0 || a.ch4.envDir
		}
	case 0xFF24:
		a.nr50 = v
	case 0xFF25:
		a.nr51 = v
	case 0xFF26:
		pwr := (v & (1 << 7)) != 0
		if !pwr {
			nr51wave := a.ch3.ram
			*a = APU{}
			a.ch3.ram = nr51wave
		} else {
			a.enabled = true
		}
	}
}

// trigger marks a square channel active unless its DAC (envelope volume and
// direction) is off.
func (a *APU) trigger(ch *chSquare) {
	ch.enabled = ch.vol != 0 || ch.envDir
}

// --- Save/Load state ---

type apuState struct {
	Enabled    bool
	NR50, NR51 byte
	Ch1        chSquare
	Ch2        chSquare
	Ch3        chWave
	Ch4        chNoise
}

func (a *APU) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	s := apuState{
		Enabled: a.enabled,
		NR50:    a.nr50, NR51: a.nr51,
		Ch1: a.ch1, Ch2: a.ch2, Ch3: a.ch3, Ch4: a.ch4,
	}
	_ = enc.Encode(s)
	return buf.Bytes()
}

func (a *APU) LoadState(data []byte) {
	var s apuState
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return
	}
	a.enabled = s.Enabled
	a.nr50, a.nr51 = s.NR50, s.NR51
	a.ch1, a.ch2, a.ch3, a.ch4 = s.Ch1, s.Ch2, s.Ch3, s.Ch4
}
