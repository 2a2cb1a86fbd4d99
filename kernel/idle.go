package kernel

import "time"

// idleDelay is how long idle holds the CPU per turn.
const idleDelay = 50 * time.Millisecond

// idleProgram keeps a background process runnable. It naps on the host
// clock, never through Sleep, so it stays in the run queue and the
// scheduler always has something to pick.
type idleProgram struct{}

func (idleProgram) Name() string { return "idle" }

func (idleProgram) Run(ctx *Context) {
	for {
		ctx.Cooperate()
		time.Sleep(idleDelay)
		ctx.SwitchProcess()
	}
}
