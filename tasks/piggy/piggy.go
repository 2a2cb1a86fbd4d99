// Package piggy fills a whole address space, verifies it and frees it,
// forever. A handful of these force the VM manager to swap.
package piggy

import (
	"time"

	"coopos/hal"
	"coopos/kernel"
)

const pause = 50 * time.Millisecond

type Task struct {
	Pages  int
	Value  byte
	Rounds int
}

func New() *Task {
	return &Task{Pages: kernel.MaxPages, Value: 50}
}

func (t *Task) Name() string { return "piggy" }

func (t *Task) Run(ctx *kernel.Context) {
	log := ctx.Log()
	size := t.Pages * hal.PageSize

	for round := 0; t.Rounds == 0 || round < t.Rounds; round++ {
		addr := ctx.AllocateMemory(size)
		if addr < 0 {
			log.WithField("size", size).Warn("piggy: allocation failed")
		} else {
			bad := t.fill(ctx, addr, size)
			if bad > 0 {
				log.WithField("addr", addr).WithField("bad", bad).Error("piggy: verify failed")
			} else {
				log.WithField("addr", addr).Info("piggy: verified")
			}
			ctx.FreeMemory(addr, size)
		}
		ctx.Cooperate()
		ctx.Sleep(pause)
	}
}

// fill writes Value to every byte and returns how many read back wrong.
func (t *Task) fill(ctx *kernel.Context, addr, size int) int {
	for i := 0; i < size; i++ {
		if i%hal.PageSize == 0 {
			ctx.Cooperate()
		}
		ctx.Store(addr+i, t.Value)
	}
	bad := 0
	for i := 0; i < size; i++ {
		if i%hal.PageSize == 0 {
			ctx.Cooperate()
		}
		if b, ok := ctx.Load(addr + i); !ok || b != t.Value {
			bad++
		}
	}
	return bad
}
