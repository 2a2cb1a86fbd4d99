package kernel

import "coopos/hal"

// translate resolves a virtual address through the TLB, faulting the page
// in on a miss. Two lookups always suffice: GetMapping installs the row.
func (c *Context) translate(addr int) (int, bool) {
	if addr < 0 || addr >= MaxPages*hal.PageSize {
		return -1, false
	}
	vpage, off := addr/hal.PageSize, addr%hal.PageSize

	tlb := &c.k.hw.TLB
	frame, ok := tlb.Lookup(vpage)
	if !ok {
		if !c.GetMapping(vpage) {
			return -1, false
		}
		if frame, ok = tlb.Lookup(vpage); !ok {
			return -1, false
		}
	}
	return frame*hal.PageSize + off, true
}

// Load reads the byte at virtual address addr.
func (c *Context) Load(addr int) (byte, bool) {
	pa, ok := c.translate(addr)
	if !ok {
		return 0, false
	}
	return c.k.hw.Memory[pa], true
}

// Store writes b at virtual address addr.
func (c *Context) Store(addr int, b byte) bool {
	pa, ok := c.translate(addr)
	if !ok {
		return false
	}
	c.k.hw.Memory[pa] = b
	return true
}
