package hal

import (
	"errors"
	"sync"
)

// ErrNoWindow is returned by RunWindow when no desktop window can be opened.
var ErrNoWindow = errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
//
// Drawing from a goroutine other than the host runner must hold the lock.
type Framebuffer interface {
	sync.Locker
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// HAL provides the only contact point between the simulation and the outside world.
type HAL interface {
	Hardware() *Hardware
	Display() Display
}
