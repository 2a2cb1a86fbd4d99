package memtest

import (
	"time"

	"coopos/kernel"

	"github.com/sirupsen/logrus"
)

const pause = 50 * time.Millisecond

type probe struct {
	size  int
	value byte
}

var probes = [...]probe{{size: 3072, value: 50}, {size: 4096, value: 100}}

// Task makes two allocations, touches the first byte of each, and frees
// both.
type Task struct {
	Rounds int
}

func New() *Task { return &Task{} }

func (t *Task) Name() string { return "memtest" }

func (t *Task) Run(ctx *kernel.Context) {
	log := ctx.Log()
	for round := 0; t.Rounds == 0 || round < t.Rounds; round++ {
		var addrs [len(probes)]int
		for i, p := range probes {
			addrs[i] = ctx.AllocateMemory(p.size)
			if addrs[i] < 0 {
				log.WithField("size", p.size).Warn("memtest: allocation failed")
				continue
			}
			ctx.Store(addrs[i], p.value)
			got, _ := ctx.Load(addrs[i])
			entry := log.WithFields(logrus.Fields{"addr": addrs[i], "wrote": p.value, "read": got})
			if got != p.value {
				entry.Error("memtest: mismatch")
			} else {
				entry.Info("memtest: ok")
			}
		}
		for i, p := range probes {
			if addrs[i] >= 0 && ctx.FreeMemory(addrs[i], p.size) {
				log.WithField("addr", addrs[i]).Debug("memtest: freed")
			}
		}
		ctx.Cooperate()
		ctx.Sleep(pause)
	}
}
