package hal

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
)

// Displayer draws into a rectangular region of a Framebuffer.
//
// It satisfies drivers.Displayer plus the extra methods tinyterm needs.
// Coordinates are relative to the region origin. It does not lock the
// framebuffer; callers wrap a batch of drawing in fb.Lock/Unlock.
type Displayer struct {
	fb Framebuffer
	r  image.Rectangle
}

var _ drivers.Displayer = (*Displayer)(nil)

// NewDisplayer returns a Displayer clipped to region r of fb.
func NewDisplayer(fb Framebuffer, r image.Rectangle) *Displayer {
	if fb != nil {
		r = r.Intersect(image.Rect(0, 0, fb.Width(), fb.Height()))
	}
	return &Displayer{fb: fb, r: r}
}

// Bounds returns the region in framebuffer coordinates.
func (d *Displayer) Bounds() image.Rectangle { return d.r }

func (d *Displayer) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.r.Dx()), int16(d.r.Dy())
}

func (d *Displayer) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != PixelFormatRGB565 {
		return
	}
	ix := int(x)
	iy := int(y)
	if ix < 0 || ix >= d.r.Dx() || iy < 0 || iy >= d.r.Dy() {
		return
	}
	buf := d.fb.Buffer()
	pixel := rgb565(c.R, c.G, c.B)
	off := (d.r.Min.Y+iy)*d.fb.StrideBytes() + (d.r.Min.X+ix)*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *Displayer) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *Displayer) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb == nil || d.fb.Format() != PixelFormatRGB565 {
		return nil
	}
	buf := d.fb.Buffer()
	w := d.r.Dx()
	h := d.r.Dy()

	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)

	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := (d.r.Min.Y + py) * stride
		for px := x0; px < x1; px++ {
			off := row + (d.r.Min.X+px)*2
			if off < 0 || off+1 >= len(buf) {
				continue
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// ScrollUp shifts the region up by lines pixels and clears the exposed rows.
func (d *Displayer) ScrollUp(lines int16, bg color.RGBA) error {
	if d.fb == nil || d.fb.Format() != PixelFormatRGB565 || lines <= 0 {
		return nil
	}
	w := d.r.Dx()
	h := d.r.Dy()
	n := int(lines)
	if n >= h {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	rowBytes := w * 2
	for y := 0; y < h-n; y++ {
		dst := (d.r.Min.Y+y)*stride + d.r.Min.X*2
		src := (d.r.Min.Y+y+n)*stride + d.r.Min.X*2
		if src+rowBytes > len(buf) {
			break
		}
		copy(buf[dst:dst+rowBytes], buf[src:src+rowBytes])
	}
	return d.FillRectangle(0, int16(h-n), int16(w), int16(n), bg)
}

func (d *Displayer) SetScroll(line int16) {}

func (d *Displayer) SetRotation(rotation drivers.Rotation) error {
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
