package kernel

import "coopos/hal"

// Stats is a copy of kernel state taken at the end of a dispatch.
type Stats struct {
	RunningPid  int
	RunningName string
	Queued      [numPriorities]int
	Sleeping    int
	Waiting     int
	Live        int

	Usage  []bool
	Frames int
	TLB    [hal.TLBRows]hal.TLBEntry

	Syscalls  uint64
	Faults    uint64
	SwapOuts  uint64
	SwapIns   uint64
	Demotions uint64

	Halted bool
}

// Stats returns the most recently published snapshot. Safe from any goroutine.
func (k *Kernel) Stats() Stats {
	k.statsMu.Lock()
	defer k.statsMu.Unlock()
	s := k.stats
	s.Usage = append([]bool(nil), k.stats.Usage...)
	return s
}

func (k *Kernel) publish() {
	k.statsMu.Lock()
	defer k.statsMu.Unlock()

	s := &k.stats
	s.RunningPid, s.RunningName = -1, ""
	if p := k.running; p != nil {
		s.RunningPid, s.RunningName = p.pid, p.name
	}
	for prio := range s.Queued {
		s.Queued[prio] = k.queues.len(Priority(prio))
	}
	s.Sleeping = len(k.sleeping)
	s.Waiting = len(k.waiting)
	s.Live = len(k.live)
	s.Usage = k.usage.snapshot(s.Usage)
	s.Frames = k.frames
	s.TLB = k.hw.TLB.Rows()
	s.Syscalls = k.counters.syscalls
	s.Faults = k.counters.faults
	s.SwapOuts = k.counters.swapOuts
	s.SwapIns = k.counters.swapIns
	s.Demotions = k.counters.demotions
	s.Halted = k.fatal.active.Load()
}
