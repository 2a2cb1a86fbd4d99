package monitor

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"coopos/hal"
	"coopos/kernel"
)

type fixedStats kernel.Stats

func (s fixedStats) Stats() kernel.Stats { return kernel.Stats(s) }

func near(a, b color.RGBA) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= 8 && d(a.G, b.G) <= 8 && d(a.B, b.B) <= 8
}

func newFramebuffer(t *testing.T) hal.Framebuffer {
	t.Helper()
	fb := hal.New().Display().Framebuffer()
	fb.Lock()
	fb.ClearRGB(0xff, 0xff, 0xff)
	fb.Unlock()
	return fb
}

func TestDrawUsageGrid(t *testing.T) {
	fb := newFramebuffer(t)
	usage := make([]bool, 1000)
	for i := 0; i < 10; i++ {
		usage[i] = true
	}
	s := kernel.Stats{RunningPid: 3, RunningName: "ping", Usage: usage, Frames: 1000}
	for i := range s.TLB {
		s.TLB[i] = hal.TLBEntry{Virtual: -1, Physical: -1}
	}

	r := image.Rect(0, 10, 320, 190)
	m := New(fixedStats(s), fb, r)
	if err := m.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	top := r.Min.Y + headerH + 2 + 4*lineHeight + 4
	used := hal.PixelAt(fb, 2, top)
	if !near(used, colorFrame) {
		t.Fatalf("used cell = %v, want %v", used, colorFrame)
	}
	free := hal.PixelAt(fb, 2+20*cellSize, top)
	if !near(free, colorFree) {
		t.Fatalf("free cell = %v, want %v", free, colorFree)
	}
	if got := hal.PixelAt(fb, 5, 5); !near(got, color.RGBA{R: 0xff, G: 0xff, B: 0xff}) {
		t.Fatalf("pixel above the region = %v, want untouched white", got)
	}
}

func TestDrawHalted(t *testing.T) {
	fb := newFramebuffer(t)
	m := New(fixedStats(kernel.Stats{RunningPid: -1, Halted: true}), fb, image.Rect(0, 0, 320, 180))
	if err := m.Draw(); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if got := hal.PixelAt(fb, 318, 1); !near(got, colorHalted) {
		t.Fatalf("header = %v, want halted color %v", got, colorHalted)
	}
}

func TestSnapshot(t *testing.T) {
	fb := newFramebuffer(t)
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := Snapshot(fb, path); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds(); got.Dx() != fb.Width() || got.Dy() != fb.Height() {
		t.Fatalf("image bounds = %v, want %dx%d", got, fb.Width(), fb.Height())
	}
}
