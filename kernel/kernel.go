// Package kernel implements a cooperative single-token kernel: processes
// run as goroutines but only the holder of the run token executes, and all
// kernel state is touched from the kernel goroutine between syscalls.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"coopos/hal"
	"coopos/vfs"

	"github.com/sirupsen/logrus"
)

var (
	// ErrSwapOpen is returned by Run when the swap device cannot be opened.
	ErrSwapOpen = errors.New("kernel: cannot open swap device")
	// ErrSwapIO reports a short or failed page transfer to the swap device.
	ErrSwapIO = errors.New("kernel: swap I/O failed")
	// ErrNoVictim reports that no resident page can be evicted.
	ErrNoVictim = errors.New("kernel: no page to evict")
)

// Options configures a Kernel. Zero fields take defaults.
type Options struct {
	Quantum         time.Duration
	InstructionCost time.Duration
	// IdlePoll is how often the kernel rechecks sleepers if no process,
	// idle included, is runnable.
	IdlePoll   time.Duration
	Seed       uint64
	SwapSpec   string
	UsageSlots int
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		Quantum:         250 * time.Millisecond,
		InstructionCost: 10 * time.Millisecond,
		IdlePoll:        time.Millisecond,
		SwapSpec:        "file swapfile.dat",
		UsageSlots:      DefaultUsageSlots,
	}
}

// Kernel owns the scheduler, the VM manager and the device table.
type Kernel struct {
	hw   *hal.Hardware
	dev  vfs.Device
	opts Options
	log  logrus.FieldLogger
	rng  *rand.Rand
	now  func() time.Time

	calls chan *request

	queues   runQueues
	sleeping []*process
	live     map[int]*process
	waiting  map[int]*process
	running  *process
	current  atomic.Pointer[process]
	nextPid  int

	usage     *UsageTable
	frames    int
	swap      int
	nextBlock int

	counters counters
	fatal    fatalState

	statsMu sync.Mutex
	stats   Stats
}

type counters struct {
	syscalls  uint64
	faults    uint64
	swapOuts  uint64
	swapIns   uint64
	demotions uint64
}

// New builds a kernel over hw that opens devices through dev.
func New(hw *hal.Hardware, dev vfs.Device, opts Options) *Kernel {
	def := DefaultOptions()
	if opts.Quantum <= 0 {
		opts.Quantum = def.Quantum
	}
	if opts.InstructionCost < 0 {
		opts.InstructionCost = 0
	}
	if opts.IdlePoll <= 0 {
		opts.IdlePoll = def.IdlePoll
	}
	if opts.SwapSpec == "" {
		opts.SwapSpec = def.SwapSpec
	}
	if opts.UsageSlots <= 0 {
		opts.UsageSlots = def.UsageSlots
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Kernel{
		hw:      hw,
		dev:     dev,
		opts:    opts,
		log:     opts.Logger,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:     opts.Now,
		calls:   make(chan *request, 1),
		live:    make(map[int]*process),
		waiting: make(map[int]*process),
		nextPid: 1,
		usage:   NewUsageTable(opts.UsageSlots),
		frames:  min(opts.UsageSlots, hal.Frames),
		swap:    -1,
	}
}

// Run boots the kernel with init and the idle process, opens the swap
// device and dispatches syscalls until ctx is done or a fatal error occurs.
func (k *Kernel) Run(ctx context.Context, init Program) error {
	if err := k.boot(init); err != nil {
		return err
	}
	k.publish()

	for {
		if err := k.resume(ctx); err != nil {
			return err
		}

		var r *request
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r = <-k.calls:
		}

		k.dispatch(r)
		k.publish()
		if err := k.fatal.err(); err != nil {
			return err
		}

		if d := k.opts.InstructionCost; d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
}

func (k *Kernel) boot(init Program) error {
	initPid := k.createProcess(init, Interactive)
	idlePid := k.createProcess(idleProgram{}, Background)

	id, err := k.dev.Open(k.opts.SwapSpec)
	if err != nil {
		k.fail(fmt.Errorf("%w %q: %v", ErrSwapOpen, k.opts.SwapSpec, err))
		return k.fatal.err()
	}
	k.swap = id

	k.log.WithFields(logrus.Fields{
		"init": initPid,
		"idle": idlePid,
		"swap": k.opts.SwapSpec,
	}).Info("kernel: booted")
	return nil
}

// resume hands the token to the selected process. Idle keeps the run queues
// non-empty, so the poll loop only runs if idle itself is gone.
func (k *Kernel) resume(ctx context.Context) error {
	for stalled := false; k.running == nil; stalled = true {
		k.schedule()
		if k.running != nil {
			break
		}
		if !stalled {
			k.log.WithField("sleeping", len(k.sleeping)).Warn("kernel: nothing runnable")
		}
		t := time.NewTimer(k.opts.IdlePoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := k.running.exec.Start(); err != nil {
		k.fail(fmt.Errorf("resume pid %d: %w", k.running.pid, err))
		return k.fatal.err()
	}
	return nil
}

func (k *Kernel) dispatch(r *request) {
	k.counters.syscalls++
	p := r.from

	switch r.call {
	case CallCreateProcess:
		r.ret.n = k.createProcess(r.prog, r.priority)
	case CallSwitchProcess:
		k.switchProcess()
	case CallSleep:
		k.sleep(p, r.dur)
	case CallExit:
		k.exit(p)
	case CallOpen:
		r.ret.n = k.open(p, r.text)
	case CallClose:
		k.close(p, r.handle)
	case CallRead:
		r.ret.data = k.read(p, r.handle, r.n)
	case CallWrite:
		r.ret.n = k.write(p, r.handle, r.data)
	case CallSeek:
		k.seek(p, r.handle, r.n)
	case CallGetPid:
		r.ret.n = p.pid
	case CallGetPidByName:
		r.ret.n = k.pidByName(r.text)
	case CallSendMessage:
		r.ret.ok = k.sendMessage(p, r.msg)
	case CallWaitForMessage:
		r.ret.msg = k.waitForMessage(p)
	case CallGetMapping:
		ok, err := k.getMapping(p, r.n)
		switch {
		case errors.Is(err, ErrNoVictim):
			k.procLog(p).WithField("vpage", r.n).Warn("kernel: out of memory")
		case err != nil:
			k.fail(err)
		}
		r.ret.ok = ok
	case CallAllocateMemory:
		r.ret.n = k.allocate(p, r.n)
	case CallFreeMemory:
		r.ret.ok = k.free(p, r.handle, r.n)
	default:
		k.procLog(p).WithField("call", r.call).Warn("kernel: unknown syscall")
	}
}

// spawn starts the goroutine backing p. It waits for its first permit.
func (k *Kernel) spawn(p *process) {
	ctx := &Context{k: k, p: p, log: k.procLog(p)}
	go func() {
		p.exec.Stop()
		defer func() {
			if v := recover(); v != nil {
				k.procLog(p).WithField("panic", v).Errorf("kernel: process crashed\n%s", captureStack())
			}
			p.exec.done.Store(true)
			if !p.exited {
				p.exited = true
				k.calls <- &request{call: CallExit, from: p}
			}
		}()
		p.prog.Run(ctx)
	}()
}

func (k *Kernel) procLog(p *process) logrus.FieldLogger {
	if p == nil {
		return k.log
	}
	return k.log.WithFields(logrus.Fields{"pid": p.pid, "name": p.name})
}
