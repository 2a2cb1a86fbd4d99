package kernel

import (
	"context"
	"time"
)

// RunTimer flags the running process once per quantum until ctx is done.
// It is the only goroutine besides the token holder that touches process
// state, and only through atomics.
func (k *Kernel) RunTimer(ctx context.Context) error {
	t := time.NewTicker(k.opts.Quantum)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			k.Tick()
		}
	}
}

// Tick expires the running process's quantum and counts the timeout.
func (k *Kernel) Tick() {
	if p := k.current.Load(); p != nil {
		p.exec.RequestStop()
		p.timeouts.Add(1)
	}
}
