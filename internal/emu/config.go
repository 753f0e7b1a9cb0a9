package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool // log PC and opcode of each CPU instruction via the standard log package
	LimitFPS bool // throttle Run to ~60Hz; StepFrame itself is never throttled
}
