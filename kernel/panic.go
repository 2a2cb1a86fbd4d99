package kernel

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ErrKernelHalted wraps the error returned by Run after a fatal error.
var ErrKernelHalted = errors.New("kernel: halted")

// PanicInfo describes the fatal error that halted the kernel.
type PanicInfo struct {
	Pid   int
	Name  string
	Err   error
	Stack []byte
}

type fatalState struct {
	active  atomic.Bool
	once    sync.Once
	handler atomic.Value // func(PanicInfo)
	first   atomic.Value // error
}

func (f *fatalState) err() error {
	if !f.active.Load() {
		return nil
	}
	if v, ok := f.first.Load().(error); ok {
		return v
	}
	return nil
}

// InPanicMode reports whether a fatal error has halted the kernel.
func (k *Kernel) InPanicMode() bool {
	return k.fatal.active.Load()
}

// SetPanicHandler installs fn to be called once, on the first fatal error.
// It runs on the kernel goroutine and must not panic.
func (k *Kernel) SetPanicHandler(fn func(PanicInfo)) {
	k.fatal.handler.Store(fn)
}

// fail halts the kernel. Only the first error is kept.
func (k *Kernel) fail(err error) {
	k.fatal.once.Do(func() {
		k.fatal.first.Store(fmt.Errorf("%w: %w", ErrKernelHalted, err))
		k.fatal.active.Store(true)

		info := PanicInfo{Pid: -1, Err: err, Stack: captureStack()}
		if p := k.running; p != nil {
			info.Pid, info.Name = p.pid, p.name
		}
		k.log.WithFields(logrus.Fields{"pid": info.Pid, "name": info.Name}).WithError(err).Error("kernel: fatal")

		if v := k.fatal.handler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}
