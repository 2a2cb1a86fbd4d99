// Package monitor draws the kernel's published state into a framebuffer
// region: counters, the usage table and the TLB.
package monitor

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"coopos/hal"
	"coopos/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// StatsSource is implemented by *kernel.Kernel.
type StatsSource interface {
	Stats() kernel.Stats
}

const (
	lineHeight = 10
	headerH    = 12
	cellSize   = 3
)

// Monitor renders a StatsSource. Draw may be called from the host runner
// while the kernel runs; it only reads the published snapshot.
type Monitor struct {
	src  StatsSource
	fb   hal.Framebuffer
	d    *hal.Displayer
	font tinyfont.Fonter
}

// New draws src into region r of fb.
func New(src StatsSource, fb hal.Framebuffer, r image.Rectangle) *Monitor {
	return &Monitor{
		src:  src,
		fb:   fb,
		d:    hal.NewDisplayer(fb, r),
		font: &proggy.TinySZ8pt7b,
	}
}

// Draw renders the latest snapshot.
func (m *Monitor) Draw() error {
	s := m.src.Stats()

	m.fb.Lock()
	defer m.fb.Unlock()
	m.render(s)
	return m.d.Display()
}

func (m *Monitor) render(s kernel.Stats) {
	w, h := m.d.Size()
	m.d.FillRectangle(0, 0, w, h, colorBG)

	header := colorHeaderBG
	title := "coopos"
	if s.Halted {
		header = colorHalted
		title = "coopos HALTED"
	}
	m.d.FillRectangle(0, 0, w, headerH, header)
	m.text(2, 0, title, colorFG)

	run := "idle"
	if s.RunningPid >= 0 {
		run = fmt.Sprintf("%d %s", s.RunningPid, s.RunningName)
	}
	lines := []string{
		"run " + run,
		fmt.Sprintf("rt %d  in %d  bg %d  sleep %d  wait %d  live %d",
			s.Queued[kernel.RealTime], s.Queued[kernel.Interactive], s.Queued[kernel.Background],
			s.Sleeping, s.Waiting, s.Live),
		fmt.Sprintf("sys %d  faults %d  out %d  in %d  demote %d",
			s.Syscalls, s.Faults, s.SwapOuts, s.SwapIns, s.Demotions),
		tlbLine(s.TLB),
	}
	y := int16(headerH + 2)
	for _, l := range lines {
		m.text(2, y, l, colorDim)
		y += lineHeight
	}

	m.grid(y+4, s.Usage, s.Frames)
}

// text draws s with its top edge at y.
func (m *Monitor) text(x, y int16, s string, c color.RGBA) {
	tinyfont.WriteLine(m.d, m.font, x, y+lineHeight-2, s, c)
}

// grid draws one cell per usage slot, frames first.
func (m *Monitor) grid(top int16, usage []bool, frames int) {
	w, _ := m.d.Size()
	cols := int(w-4) / cellSize
	if cols <= 0 {
		return
	}
	for i, used := range usage {
		x := int16(2 + (i%cols)*cellSize)
		y := top + int16((i/cols)*cellSize)
		c := colorFree
		switch {
		case used && i < frames:
			c = colorFrame
		case used:
			c = colorBlock
		}
		m.d.FillRectangle(x, y, cellSize-1, cellSize-1, c)
	}
}

func tlbLine(rows [hal.TLBRows]hal.TLBEntry) string {
	s := "tlb"
	for i, e := range rows {
		if e.Virtual < 0 {
			s += fmt.Sprintf("  %d: -", i)
			continue
		}
		s += fmt.Sprintf("  %d: v%d>f%d", i, e.Virtual, e.Physical)
	}
	return s
}

// Snapshot writes the whole framebuffer to path as PNG.
func Snapshot(fb hal.Framebuffer, path string) error {
	fb.Lock()
	img := hal.Image(fb)
	fb.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	return f.Close()
}
