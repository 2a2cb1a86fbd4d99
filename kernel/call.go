package kernel

import "time"

// Call identifies a syscall.
type Call uint8

const (
	CallCreateProcess Call = iota + 1
	CallSwitchProcess
	CallSleep
	CallExit
	CallOpen
	CallClose
	CallRead
	CallWrite
	CallSeek
	CallGetPid
	CallGetPidByName
	CallSendMessage
	CallWaitForMessage
	CallGetMapping
	CallAllocateMemory
	CallFreeMemory
)

func (c Call) String() string {
	switch c {
	case CallCreateProcess:
		return "create-process"
	case CallSwitchProcess:
		return "switch-process"
	case CallSleep:
		return "sleep"
	case CallExit:
		return "exit"
	case CallOpen:
		return "open"
	case CallClose:
		return "close"
	case CallRead:
		return "read"
	case CallWrite:
		return "write"
	case CallSeek:
		return "seek"
	case CallGetPid:
		return "get-pid"
	case CallGetPidByName:
		return "get-pid-by-name"
	case CallSendMessage:
		return "send-message"
	case CallWaitForMessage:
		return "wait-for-message"
	case CallGetMapping:
		return "get-mapping"
	case CallAllocateMemory:
		return "allocate-memory"
	case CallFreeMemory:
		return "free-memory"
	default:
		return "unknown"
	}
}

// request carries one syscall from a process to the kernel and its result
// back. A fresh request is used for every call.
type request struct {
	call Call
	from *process

	prog     Program
	priority Priority
	dur      time.Duration
	text     string
	handle   int
	n        int
	data     []byte
	msg      Message

	ret response
}

type response struct {
	n    int
	ok   bool
	data []byte
	msg  *Message
}
