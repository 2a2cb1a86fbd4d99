package kernel

import (
	"errors"
	"sync/atomic"
)

// ErrPermitOverflow reports a second Start before the permit was consumed.
var ErrPermitOverflow = errors.New("kernel: execution permit already granted")

// execContext is the run token of one process goroutine.
//
// The goroutine holds zero permits when created. Start grants exactly one;
// Stop consumes it, blocking until it is granted.
type execContext struct {
	sem     chan struct{}
	quantum atomic.Bool
	done    atomic.Bool
}

func newExec() *execContext {
	return &execContext{sem: make(chan struct{}, 1)}
}

// Start grants the permit.
func (e *execContext) Start() error {
	select {
	case e.sem <- struct{}{}:
		return nil
	default:
		return ErrPermitOverflow
	}
}

// Stop blocks until a permit is granted and consumes it.
func (e *execContext) Stop() {
	<-e.sem
}

// RequestStop flags the quantum as expired. It never blocks.
func (e *execContext) RequestStop() {
	e.quantum.Store(true)
}

// Done reports whether the process logic has returned.
func (e *execContext) Done() bool {
	return e.done.Load()
}
