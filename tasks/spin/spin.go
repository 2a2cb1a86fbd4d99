// Package spin holds the trivial looping workloads used to watch the
// scheduler's priorities at work.
package spin

import (
	"time"

	"coopos/kernel"
)

type Task struct {
	name   string
	Sleep  time.Duration
	Rounds int
}

// NewRTSleep returns a task that sleeps 100ms per round.
func NewRTSleep() *Task {
	return &Task{name: "rtsleep", Sleep: 100 * time.Millisecond}
}

// NewBackground returns a task that only yields.
func NewBackground() *Task {
	return &Task{name: "background", Sleep: 50 * time.Millisecond}
}

func (t *Task) Name() string { return t.name }

func (t *Task) Run(ctx *kernel.Context) {
	for round := 0; t.Rounds == 0 || round < t.Rounds; round++ {
		ctx.Log().WithField("round", round).Debug("spin: tick")
		ctx.Sleep(t.Sleep)
		ctx.Cooperate()
	}
}
