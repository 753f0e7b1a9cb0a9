package ui

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/FabianRolfMatthiasNoll/GameBoyEmulator/internal/emu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// App is a minimal ebiten host: it maps keyboard input to joypad buttons,
// paces the emulator at ~59.7Hz, and draws the resulting framebuffer. Save
// states, pause/reset, and a stats toast are the only "menu" surface;
// picking ROMs, audio, and palettes are left to the CLI (-rom flag).
type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	paused bool
	fast   bool // fast-forward (Tab) speeds up pacing by fastMultiplier

	currentSlot int // 0..3, selected via number keys 1-4

	lastTime time.Time
	frameAcc float64 // accumulated fractional frames, for pacing independent of ebiten's tick rate

	showStats bool

	toastMsg   string
	toastUntil time.Time
}

const fastMultiplier = 4

// NewApp wires an App around an already-constructed Machine and sets the
// initial window title/size.
func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(windowTitle(cfg.Title, m))
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{cfg: cfg, m: m, lastTime: time.Now()}
}

func windowTitle(base string, m *emu.Machine) string {
	if m == nil || m.ROMPath() == "" {
		return base
	}
	if t := m.ROMTitle(); t != "" {
		return base + " - [" + t + "]"
	}
	return base
}

// Run starts the ebiten game loop. It blocks until the window closes.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if !ebiten.IsWindowBeingClosed() {
		a.readInput()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.ResetPostBoot()
	}
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF8) {
		a.showStats = !a.showStats
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if err := a.saveScreenshot(); err != nil {
			a.toast("screenshot failed: " + err.Error())
		}
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("slot set to %d", i+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := a.m.SaveStateToFile(a.statePath(a.currentSlot)); err != nil {
			a.toast("save failed: " + err.Error())
		} else {
			a.toast(fmt.Sprintf("saved slot %d", a.currentSlot+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if err := a.m.LoadStateFromFile(a.statePath(a.currentSlot)); err != nil {
			a.toast("load failed: " + err.Error())
		} else {
			a.toast(fmt.Sprintf("loaded slot %d", a.currentSlot+1))
		}
	}

	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	a.pace()
	return nil
}

func (a *App) readInput() {
	var btn emu.Buttons
	if a.paused {
		a.m.SetButtons(btn)
		return
	}
	btn.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
	btn.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
	btn.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
	btn.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
	btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
	btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
	btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
	btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	a.m.SetButtons(btn)
}

// pace runs whole emulated frames at ~59.7275Hz using a time accumulator,
// decoupled from ebiten's own tick rate, capping the catch-up burst to
// avoid a spiral of death after a stall (e.g. window drag).
func (a *App) pace() {
	if a.paused {
		a.lastTime = time.Now()
		return
	}
	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	a.lastTime = now
	if dt < 0 {
		dt = 0
	}
	const gbFPS = 4194304.0 / float64(emu.FrameCycles)
	speed := 1.0
	if a.fast {
		speed = fastMultiplier
	}
	a.frameAcc += dt * gbFPS * speed
	for steps := 0; a.frameAcc >= 1.0 && steps < 10; steps++ {
		a.m.StepFrame()
		a.frameAcc -= 1.0
	}
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)

	if a.showStats {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("slot %d  %s", a.currentSlot+1, pauseLabel(a.paused)), 4, 4)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 4, 4)
	}
}

func pauseLabel(paused bool) string {
	if paused {
		return "paused"
	}
	return "running"
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

// statePath returns the per-ROM, per-slot save state file path, alongside
// the ROM itself.
func (a *App) statePath(slot int) string {
	base := "unknown"
	if a.m != nil && a.m.ROMPath() != "" {
		base = a.m.ROMPath()
	}
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	return filepath.Join(dir, fmt.Sprintf("%s.slot%d.savestate", name, slot))
}

func (a *App) saveScreenshot() error {
	fb := a.m.Framebuffer()
	img := &image.RGBA{
		Pix:    append([]byte(nil), fb...),
		Stride: 4 * 160,
		Rect:   image.Rect(0, 0, 160, 144),
	}
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
