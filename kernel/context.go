package kernel

import (
	"runtime"
	"time"

	"coopos/hal"

	"github.com/sirupsen/logrus"
)

// Context is a process's only handle on the kernel.
//
// Every method except Cooperate, Load and Store is a syscall: it hands a
// request to the kernel and blocks until the kernel resumes this process.
type Context struct {
	k   *Kernel
	p   *process
	log logrus.FieldLogger
}

func (c *Context) call(r *request) *request {
	r.from = c.p
	c.k.calls <- r
	c.p.exec.Stop()
	return r
}

// Log returns a logger tagged with this process.
func (c *Context) Log() logrus.FieldLogger { return c.log }

// Name returns the process display name.
func (c *Context) Name() string { return c.p.name }

// Cooperate yields if the quantum timer has fired since the last check.
func (c *Context) Cooperate() {
	if c.p.exec.quantum.CompareAndSwap(true, false) {
		c.SwitchProcess()
	}
}

// CreateProcess starts prog at the given priority and returns its pid.
func (c *Context) CreateProcess(prog Program, prio Priority) int {
	return c.call(&request{call: CallCreateProcess, prog: prog, priority: prio}).ret.n
}

// SwitchProcess yields to the scheduler.
func (c *Context) SwitchProcess() {
	c.call(&request{call: CallSwitchProcess})
}

// Sleep parks the process for at least d.
func (c *Context) Sleep(d time.Duration) {
	c.call(&request{call: CallSleep, dur: d})
}

// Exit ends the process. It does not return.
func (c *Context) Exit() {
	c.p.exited = true
	c.p.exec.done.Store(true)
	c.k.calls <- &request{call: CallExit, from: c.p}
	runtime.Goexit()
}

// Open opens a device ("random 7", "file notes.txt") and returns a handle, or -1.
func (c *Context) Open(spec string) int {
	return c.call(&request{call: CallOpen, text: spec}).ret.n
}

func (c *Context) Close(h int) {
	c.call(&request{call: CallClose, handle: h})
}

// Read returns up to size bytes, or nil on failure.
func (c *Context) Read(h, size int) []byte {
	return c.call(&request{call: CallRead, handle: h, n: size}).ret.data
}

// Write returns the number of bytes the device accepted, or -1.
func (c *Context) Write(h int, data []byte) int {
	return c.call(&request{call: CallWrite, handle: h, data: data}).ret.n
}

func (c *Context) Seek(h, to int) {
	c.call(&request{call: CallSeek, handle: h, n: to})
}

func (c *Context) GetPid() int {
	return c.call(&request{call: CallGetPid}).ret.n
}

// GetPidByName finds a live process by display name, ignoring case. -1 if none.
func (c *Context) GetPidByName(name string) int {
	return c.call(&request{call: CallGetPidByName, text: name}).ret.n
}

// SendMessage delivers a copy of m to m.Target. It reports whether the
// target was alive.
func (c *Context) SendMessage(m Message) bool {
	return c.call(&request{call: CallSendMessage, msg: m}).ret.ok
}

// WaitForMessage returns the oldest queued message. With an empty inbox it
// parks the process and returns nil once it is rescheduled; the caller
// must call it again to collect the message that woke it.
func (c *Context) WaitForMessage() *Message {
	return c.call(&request{call: CallWaitForMessage}).ret.msg
}

// GetMapping makes virtual page vpage resident and loads it into the TLB.
func (c *Context) GetMapping(vpage int) bool {
	return c.call(&request{call: CallGetMapping, n: vpage}).ret.ok
}

// AllocateMemory reserves size bytes of virtual memory and returns the start
// address, or -1. size must be a positive multiple of the page size.
func (c *Context) AllocateMemory(size int) int {
	if size <= 0 || size%hal.PageSize != 0 {
		return -1
	}
	return c.call(&request{call: CallAllocateMemory, n: size}).ret.n
}

// FreeMemory releases [ptr, ptr+size). ptr and size must be page aligned.
func (c *Context) FreeMemory(ptr, size int) bool {
	if ptr < 0 || size <= 0 || ptr%hal.PageSize != 0 || size%hal.PageSize != 0 {
		return false
	}
	return c.call(&request{call: CallFreeMemory, handle: ptr, n: size}).ret.ok
}
