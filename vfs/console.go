package vfs

import (
	"image"

	"coopos/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// ConsoleDevice is a write-only text terminal drawn into a framebuffer
// region. Every handle shares the same screen.
type ConsoleDevice struct {
	fb   hal.Framebuffer
	d    *hal.Displayer
	t    *tinyterm.Terminal
	open slots[struct{}]
}

// NewConsoleDevice draws into region r of fb.
func NewConsoleDevice(fb hal.Framebuffer, r image.Rectangle) *ConsoleDevice {
	d := hal.NewDisplayer(fb, r)
	t := tinyterm.NewTerminal(d)

	fb.Lock()
	t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        10,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})
	fb.Unlock()

	return &ConsoleDevice{fb: fb, d: d, t: t, open: newSlots[struct{}](deviceSlots)}
}

func (c *ConsoleDevice) Open(string) (int, error) {
	return c.open.put(struct{}{})
}

func (c *ConsoleDevice) Close(id int) error {
	_, err := c.open.drop(id)
	return err
}

// Read always returns no data.
func (c *ConsoleDevice) Read(id, size int) ([]byte, error) {
	if _, err := c.open.get(id); err != nil {
		return nil, err
	}
	return []byte{}, nil
}

func (c *ConsoleDevice) Write(id int, data []byte) (int, error) {
	if _, err := c.open.get(id); err != nil {
		return 0, err
	}
	c.fb.Lock()
	n, err := c.t.Write(data)
	c.t.Display()
	c.fb.Unlock()
	return n, err
}

func (c *ConsoleDevice) Seek(id, to int) error {
	_, err := c.open.get(id)
	return err
}
