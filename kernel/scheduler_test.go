package kernel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"coopos/hal"
	"coopos/vfs"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func newTestVFS() *vfs.VFS {
	v := vfs.New()
	v.Register("mem", vfs.NewMemDevice())
	v.Register("random", vfs.NewRandomDevice())
	return v
}

func newTestKernel(t *testing.T, opts Options) (*Kernel, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	opts.Logger = logger
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return New(hal.NewHardware(), newTestVFS(), opts), hook
}

func idleFunc(*Context) {}

func TestExecSinglePermit(t *testing.T) {
	e := newExec()
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	if err := e.Start(); !errors.Is(err, ErrPermitOverflow) {
		t.Fatalf("second Start() error = %v, want ErrPermitOverflow", err)
	}
	e.Stop()
	if err := e.Start(); err != nil {
		t.Fatalf("Start() after Stop error = %v, want nil", err)
	}

	e.RequestStop()
	if !e.quantum.Load() {
		t.Fatalf("RequestStop() did not set the quantum flag")
	}
	if e.Done() {
		t.Fatalf("Done() = true before logic ran")
	}
}

func TestPickWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	var q runQueues
	for prio := Background; prio <= RealTime; prio++ {
		for i := 0; i < 3; i++ {
			q.push(&process{priority: prio})
		}
	}

	const trials = 20000
	var counts [numPriorities]int
	for i := 0; i < trials; i++ {
		p := q.pick(rng.Float64())
		if p == nil {
			t.Fatalf("pick() = nil with all queues populated")
		}
		counts[p.priority]++
		q.push(p)
	}

	want := map[Priority]float64{RealTime: 0.6, Interactive: 0.3, Background: 0.1}
	for prio, w := range want {
		got := float64(counts[prio]) / trials
		if math.Abs(got-w) > 0.02 {
			t.Fatalf("%s share = %.3f, want %.2f ± 0.02", prio, got, w)
		}
	}
}

func TestPickFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		queued []Priority
		x      float64
		want   Priority
		none   bool
	}{
		{name: "rt draw", queued: []Priority{RealTime, Interactive}, x: 0.5, want: RealTime},
		{name: "interactive draw", queued: []Priority{RealTime, Interactive}, x: 0.7, want: Interactive},
		{name: "interactive empty falls back to rt", queued: []Priority{RealTime, Background}, x: 0.7, want: RealTime},
		{name: "background draw", queued: []Priority{RealTime, Background}, x: 0.95, want: Background},
		{name: "background empty falls back to rt", queued: []Priority{RealTime, Interactive}, x: 0.95, want: RealTime},
		{name: "no rt interactive draw", queued: []Priority{Interactive, Background}, x: 0.5, want: Interactive},
		{name: "no rt background draw", queued: []Priority{Interactive, Background}, x: 0.8, want: Background},
		{name: "no rt background empty", queued: []Priority{Interactive}, x: 0.8, want: Interactive},
		{name: "only background", queued: []Priority{Background}, x: 0.1, want: Background},
		{name: "empty", x: 0.1, none: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q runQueues
			for _, prio := range tt.queued {
				q.push(&process{priority: prio})
			}
			p := q.pick(tt.x)
			if tt.none {
				if p != nil {
					t.Fatalf("pick() = %v, want nil", p.priority)
				}
				return
			}
			if p == nil || p.priority != tt.want {
				t.Fatalf("pick(%.2f) = %v, want %v", tt.x, p, tt.want)
			}
		})
	}
}

func TestQueueFIFO(t *testing.T) {
	var q runQueues
	a := &process{pid: 1, priority: Interactive}
	b := &process{pid: 2, priority: Interactive}
	c := &process{pid: 3, priority: Interactive}
	q.push(a)
	q.push(b)
	q.push(c)

	if !q.remove(b) {
		t.Fatalf("remove(b) = false, want true")
	}
	if got := q.pop(Interactive); got != a {
		t.Fatalf("pop() = pid %d, want 1", got.pid)
	}
	if got := q.pop(Interactive); got != c {
		t.Fatalf("pop() = pid %d, want 3", got.pid)
	}
	if got := q.pop(Interactive); got != nil {
		t.Fatalf("pop() on empty queue = pid %d, want nil", got.pid)
	}
}

func TestDemotionAfterTimeouts(t *testing.T) {
	k, hook := newTestKernel(t, Options{})
	p := k.newProcess(Func("rt", idleFunc), RealTime)
	k.live[p.pid] = p
	p.timeouts.Store(demoteAfter + 1)
	k.queues.push(p)

	k.schedule()
	if k.running != p {
		t.Fatalf("schedule() did not select the only process")
	}
	if p.priority != Interactive {
		t.Fatalf("priority = %s, want interactive", p.priority)
	}
	e := hook.LastEntry()
	if e == nil || e.Message != "kernel: process demoted" || e.Level != logrus.InfoLevel {
		t.Fatalf("last log entry = %+v, want demotion at info", e)
	}

	k.switchProcess()
	if p.priority != Background {
		t.Fatalf("priority after second selection = %s, want background", p.priority)
	}
	k.switchProcess()
	if p.priority != Background {
		t.Fatalf("background process was demoted to %s", p.priority)
	}
	if got := p.timeouts.Load(); got != demoteAfter+1 {
		t.Fatalf("timeouts = %d, demotion must not reset it", got)
	}
}

func TestNoDemotionAtThreshold(t *testing.T) {
	k, _ := newTestKernel(t, Options{})
	p := k.newProcess(Func("rt", idleFunc), RealTime)
	p.timeouts.Store(demoteAfter)
	k.queues.push(p)

	k.schedule()
	if p.priority != RealTime {
		t.Fatalf("priority = %s, want realtime with %d timeouts", p.priority, demoteAfter)
	}
}

func TestSleepAndWake(t *testing.T) {
	now := time.Unix(1000, 0)
	k, _ := newTestKernel(t, Options{Now: func() time.Time { return now }})
	p := k.newProcess(Func("sleeper", idleFunc), Interactive)
	k.live[p.pid] = p
	k.setRunning(p)

	k.sleep(p, 10*time.Millisecond)
	if k.running != nil {
		t.Fatalf("running = pid %d after sleep, want nil", k.running.pid)
	}
	if len(k.sleeping) != 1 {
		t.Fatalf("sleeping = %d, want 1", len(k.sleeping))
	}

	now = now.Add(9 * time.Millisecond)
	k.schedule()
	if k.running != nil {
		t.Fatalf("process woke before its deadline")
	}

	now = now.Add(time.Millisecond)
	k.schedule()
	if k.running != p {
		t.Fatalf("process not selected after its deadline")
	}
	if len(k.sleeping) != 0 {
		t.Fatalf("sleeping = %d after wake, want 0", len(k.sleeping))
	}
}

func TestScheduleClearsTLB(t *testing.T) {
	k, _ := newTestKernel(t, Options{})
	k.hw.TLB.Install(0, 1, 1)
	k.schedule()
	if _, ok := k.hw.TLB.Lookup(1); ok {
		t.Fatalf("TLB row survived a process switch")
	}
}

func TestTickFlagsRunning(t *testing.T) {
	k, _ := newTestKernel(t, Options{})
	k.Tick()

	p := k.newProcess(Func("busy", idleFunc), Interactive)
	k.setRunning(p)
	k.Tick()
	k.Tick()
	if got := p.timeouts.Load(); got != 2 {
		t.Fatalf("timeouts = %d, want 2", got)
	}
	if !p.exec.quantum.Load() {
		t.Fatalf("Tick() did not expire the quantum")
	}
}

func TestSendMessageRequeuesWaiter(t *testing.T) {
	k, _ := newTestKernel(t, Options{})
	a := k.newProcess(Func("a", idleFunc), Interactive)
	b := k.newProcess(Func("b", idleFunc), Background)
	k.live[a.pid] = a
	k.live[b.pid] = b

	k.setRunning(b)
	if m := k.waitForMessage(b); m != nil {
		t.Fatalf("waitForMessage() on empty inbox = %+v, want nil", m)
	}
	if _, parked := k.waiting[b.pid]; !parked {
		t.Fatalf("receiver not parked")
	}

	if !k.sendMessage(a, NewMessage(b.pid, 1, []byte("x"))) {
		t.Fatalf("sendMessage() = false, want true")
	}
	if _, parked := k.waiting[b.pid]; parked {
		t.Fatalf("receiver still parked after send")
	}
	if k.queues.len(Background) != 1 {
		t.Fatalf("receiver not requeued")
	}
	if k.sendMessage(a, NewMessage(99, 1, nil)) {
		t.Fatalf("sendMessage() to a dead pid = true, want false")
	}
}

func TestPidByName(t *testing.T) {
	k, _ := newTestKernel(t, Options{})
	a := k.newProcess(Func("Ping", idleFunc), RealTime)
	b := k.newProcess(Func("pong", idleFunc), Background)
	k.live[a.pid] = a
	k.live[b.pid] = b
	k.queues.push(b)

	if got := k.pidByName("PONG"); got != b.pid {
		t.Fatalf("pidByName(PONG) = %d, want %d", got, b.pid)
	}
	if got := k.pidByName("ping"); got != a.pid {
		t.Fatalf("pidByName(ping) = %d, want %d", got, a.pid)
	}
	if got := k.pidByName("nobody"); got != -1 {
		t.Fatalf("pidByName(nobody) = %d, want -1", got)
	}
}

func TestMessageClone(t *testing.T) {
	payload := []byte{1, 2, 3}
	m := NewMessage(4, 5, payload)
	payload[0] = 9
	if m.Payload[0] != 1 {
		t.Fatalf("NewMessage shares the caller buffer")
	}
	c := m.Clone()
	c.Payload[1] = 9
	if m.Payload[1] != 2 {
		t.Fatalf("Clone shares the payload")
	}
}

func TestProgramName(t *testing.T) {
	if got := programName(Func("Hello", idleFunc)); got != "Hello" {
		t.Fatalf("programName(Func) = %q, want Hello", got)
	}
	if got := programName(idleProgram{}); got != "idle" {
		t.Fatalf("programName(idle) = %q, want idle", got)
	}
	if got := programName(&unnamed{}); got != "unnamed" {
		t.Fatalf("programName(&unnamed{}) = %q, want unnamed", got)
	}
}

type unnamed struct{}

func (*unnamed) Run(*Context) {}
