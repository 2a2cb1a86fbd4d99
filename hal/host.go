package hal

type hostHAL struct {
	hw *Hardware
	fb *hostFramebuffer
}

// New returns a host HAL implementation.
func New() HAL {
	return &hostHAL{
		hw: NewHardware(),
		fb: newHostFramebuffer(320, 320),
	}
}

func (h *hostHAL) Hardware() *Hardware { return h.hw }
func (h *hostHAL) Display() Display    { return hostDisplay{fb: h.fb} }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }
