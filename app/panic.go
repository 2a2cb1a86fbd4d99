package app

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"coopos/hal"
	"coopos/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	panicFontHeight = int16(10)
	panicFontOffset = int16(7)
)

// installPanicHandler paints the fatal error and the kernel stack over the
// whole framebuffer. The kernel has already stopped dispatching.
func installPanicHandler(k *kernel.Kernel, fb hal.Framebuffer) {
	if fb == nil {
		return
	}
	k.SetPanicHandler(func(info kernel.PanicInfo) {
		fb.Lock()
		defer fb.Unlock()

		fb.ClearRGB(255, 255, 255)
		d := hal.NewDisplayer(fb, image.Rect(0, 0, fb.Width(), fb.Height()))

		font := &proggy.TinySZ8pt7b
		_, outboxWidth := tinyfont.LineWidth(font, "0")
		fontWidth := int16(outboxWidth)
		if fontWidth <= 0 {
			return
		}

		lines := []string{
			"coopos panic:",
			fmt.Sprintf("pid: %d %s", info.Pid, info.Name),
			fmt.Sprintf("error: %v", info.Err),
		}
		if len(info.Stack) > 0 {
			lines = append(lines, "stack:")
			for _, line := range strings.Split(string(info.Stack), "\n") {
				if line == "" {
					continue
				}
				lines = append(lines, line)
			}
		} else {
			lines = append(lines, "stack: unavailable")
		}

		fg := color.RGBA{R: 0, G: 0, B: 0, A: 255}
		cols := int16(fb.Width()) / fontWidth
		if cols <= 0 {
			cols = 1
		}
		maxH := int16(fb.Height())

		y := int16(0)
	draw:
		for _, line := range lines {
			for len(line) > 0 {
				if y+panicFontHeight > maxH {
					break draw
				}
				chunk, rest := takeRunes(line, cols)
				drawTextLine(d, font, fontWidth, 0, y, chunk, fg)
				y += panicFontHeight
				line = strings.TrimLeft(rest, " \t")
			}
		}
		_ = fb.Present()
	})
}

func drawTextLine(d *hal.Displayer, font tinyfont.Fonter, fontWidth, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(d, font, x, y0+panicFontOffset, r, fg)
		x += fontWidth
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
