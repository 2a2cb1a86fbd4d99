package kernel

import (
	"fmt"

	"coopos/hal"

	"github.com/sirupsen/logrus"
)

// allocate reserves the first run of unmapped pages long enough for size
// bytes. Only the latest allocation is remembered on the process.
func (k *Kernel) allocate(p *process, size int) int {
	pages := size / hal.PageSize
	if pages <= 0 || pages > MaxPages {
		return -1
	}
	run := 0
	for i := 0; i < MaxPages; i++ {
		if p.mappings[i] != nil {
			run = 0
			continue
		}
		run++
		if run < pages {
			continue
		}
		start := i - pages + 1
		for j := start; j <= i; j++ {
			p.mappings[j] = newMapping()
		}
		p.allocStart = start * hal.PageSize
		p.allocSize = size
		return p.allocStart
	}
	k.procLog(p).WithField("size", size).Debug("kernel: no contiguous virtual range")
	return -1
}

// free unmaps [ptr, ptr+size) and reports whether any page was mapped.
func (k *Kernel) free(p *process, ptr, size int) bool {
	start, n := ptr/hal.PageSize, size/hal.PageSize
	if ptr < 0 || n <= 0 || start+n > MaxPages {
		return false
	}
	freed := false
	for i := start; i < start+n; i++ {
		m := p.mappings[i]
		if m == nil {
			continue
		}
		k.release(m)
		p.mappings[i] = nil
		freed = true
	}
	if freed && ptr == p.allocStart {
		p.allocStart, p.allocSize = -1, 0
	}
	return freed
}

// release returns a mapping's frame and swap block to the usage table.
// Block numbers index the same table as frames.
func (k *Kernel) release(m *Mapping) {
	if m.Physical >= 0 {
		k.hw.TLB.InvalidateFrame(m.Physical)
		k.usage.Release(m.Physical)
		m.Physical = -1
	}
	if m.Disk >= 0 {
		k.usage.Release(m.Disk)
		m.Disk = -1
	}
}

func (k *Kernel) releaseAll(p *process) {
	for i, m := range p.mappings {
		if m != nil {
			k.release(m)
			p.mappings[i] = nil
		}
	}
	p.allocStart, p.allocSize = -1, 0
}

// getMapping is the TLB miss handler for vpage of p.
func (k *Kernel) getMapping(p *process, vpage int) (bool, error) {
	if vpage < 0 || vpage >= MaxPages {
		return false, nil
	}
	m := p.mappings[vpage]
	if m == nil {
		m = newMapping()
		p.mappings[vpage] = m
	}

	if m.Physical < 0 {
		k.counters.faults++
		frame := k.usage.Claim(k.frames)
		if frame < 0 {
			var err error
			if frame, err = k.evict(); err != nil {
				return false, err
			}
		}
		m.Physical = frame

		if m.Disk >= 0 {
			if err := k.swapIn(m.Disk, frame); err != nil {
				return false, err
			}
		} else {
			clear(k.hw.Frame(frame))
		}
	}

	k.hw.TLB.Install(k.rng.IntN(hal.TLBRows), vpage, m.Physical)
	return true, nil
}

type residentPage struct {
	p    *process
	page int
}

// evict writes a victim page to swap and returns its frame.
//
// The victim is picked in two levels: a uniformly random live process that
// owns a resident page, then that process's first resident page.
func (k *Kernel) evict() (int, error) {
	var owners []residentPage
	for _, pid := range k.livePids() {
		p := k.live[pid]
		if page := p.resident(); page >= 0 {
			owners = append(owners, residentPage{p: p, page: page})
		}
	}
	if len(owners) == 0 {
		return -1, ErrNoVictim
	}

	v := owners[k.rng.IntN(len(owners))]
	m := v.p.mappings[v.page]
	if m.Disk < 0 {
		m.Disk = k.nextBlock
		k.nextBlock++
	}
	frame := m.Physical
	if err := k.swapOut(m.Disk, frame); err != nil {
		return -1, err
	}
	m.Physical = -1
	k.hw.TLB.InvalidateFrame(frame)

	k.procLog(v.p).WithFields(logrus.Fields{
		"vpage": v.page,
		"frame": frame,
		"block": m.Disk,
	}).Debug("kernel: page swapped out")
	return frame, nil
}

func (k *Kernel) swapOut(block, frame int) error {
	k.counters.swapOuts++
	if err := k.dev.Seek(k.swap, block*hal.PageSize); err != nil {
		return fmt.Errorf("%w: seek block %d: %v", ErrSwapIO, block, err)
	}
	n, err := k.dev.Write(k.swap, k.hw.Frame(frame))
	if err != nil {
		return fmt.Errorf("%w: write block %d: %v", ErrSwapIO, block, err)
	}
	if n != hal.PageSize {
		return fmt.Errorf("%w: wrote %d of %d bytes to block %d", ErrSwapIO, n, hal.PageSize, block)
	}
	return nil
}

func (k *Kernel) swapIn(block, frame int) error {
	k.counters.swapIns++
	if err := k.dev.Seek(k.swap, block*hal.PageSize); err != nil {
		return fmt.Errorf("%w: seek block %d: %v", ErrSwapIO, block, err)
	}
	data, err := k.dev.Read(k.swap, hal.PageSize)
	if err != nil {
		return fmt.Errorf("%w: read block %d: %v", ErrSwapIO, block, err)
	}
	if len(data) != hal.PageSize {
		return fmt.Errorf("%w: read %d of %d bytes from block %d", ErrSwapIO, len(data), hal.PageSize, block)
	}
	copy(k.hw.Frame(frame), data)
	return nil
}
