package kernel

import (
	"fmt"
	"strings"
)

// Priority selects a process's run queue.
type Priority uint8

const (
	Background Priority = iota
	Interactive
	RealTime

	numPriorities = 3
)

func (p Priority) String() string {
	switch p {
	case Background:
		return "background"
	case Interactive:
		return "interactive"
	case RealTime:
		return "realtime"
	default:
		return "unknown"
	}
}

// ParsePriority accepts the names produced by String.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "background", "bg":
		return Background, nil
	case "interactive", "":
		return Interactive, nil
	case "realtime", "rt":
		return RealTime, nil
	default:
		return Interactive, fmt.Errorf("unknown priority %q", s)
	}
}
