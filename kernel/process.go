package kernel

import (
	"reflect"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// MaxHandles is the size of a process's device handle table.
	MaxHandles = 10
	// MaxPages is the size of a process's virtual address space in pages.
	MaxPages = 100

	// demoteAfter is the quantum timeout count above which a process is demoted.
	demoteAfter = 5
)

// Program is the code a process runs. Returning from Run exits the process.
type Program interface {
	Run(ctx *Context)
}

// Namer is implemented by programs that want a display name other than
// their type name. GetPidByName matches against it.
type Namer interface {
	Name() string
}

type funcProgram struct {
	name string
	fn   func(*Context)
}

func (f funcProgram) Name() string     { return f.name }
func (f funcProgram) Run(ctx *Context) { f.fn(ctx) }

// Func wraps fn as a named Program.
func Func(name string, fn func(*Context)) Program {
	return funcProgram{name: name, fn: fn}
}

func programName(p Program) string {
	if n, ok := p.(Namer); ok {
		if s := n.Name(); s != "" {
			return s
		}
	}
	t := reflect.TypeOf(p)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "process"
	}
	return strings.ToLower(t.Name())
}

// Mapping records where one virtual page lives. -1 means unassigned.
type Mapping struct {
	Physical int
	Disk     int
}

func newMapping() *Mapping {
	return &Mapping{Physical: -1, Disk: -1}
}

// process is the kernel's control block for one process.
type process struct {
	pid      int
	name     string
	prog     Program
	priority Priority

	// timeouts is bumped by the quantum timer.
	timeouts atomic.Int32
	wakeAt   time.Time

	handles  [MaxHandles]int
	inbox    []Message
	mappings [MaxPages]*Mapping

	allocStart int
	allocSize  int

	exec *execContext

	// exited is owned by the process goroutine.
	exited bool
}

func (p *process) resident() int {
	for i, m := range p.mappings {
		if m != nil && m.Physical >= 0 {
			return i
		}
	}
	return -1
}
