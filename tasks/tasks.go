// Package tasks names the sample workloads and builds the init process that
// starts them from a boot line.
package tasks

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"coopos/kernel"
	"coopos/tasks/memtest"
	"coopos/tasks/peer"
	"coopos/tasks/piggy"
	"coopos/tasks/rtdevices"
	"coopos/tasks/spin"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// DefaultBoot is the boot line used when none is configured.
const DefaultBoot = "ping pong memtest piggy:12 realtime rtsleep background"

// maxCopies bounds name:N.
const maxCopies = 64

var ErrUnknownTask = errors.New("tasks: unknown workload")

type workload struct {
	prio kernel.Priority
	new  func() kernel.Program
}

var registry = map[string]workload{
	"ping":       {kernel.Interactive, func() kernel.Program { return peer.New("ping", "pong", true) }},
	"pong":       {kernel.Interactive, func() kernel.Program { return peer.New("pong", "ping", false) }},
	"hello":      {kernel.Interactive, func() kernel.Program { return peer.New("hello", "goodbye", true) }},
	"goodbye":    {kernel.Interactive, func() kernel.Program { return peer.New("goodbye", "hello", false) }},
	"piggy":      {kernel.Interactive, func() kernel.Program { return piggy.New() }},
	"memtest":    {kernel.Interactive, func() kernel.Program { return memtest.New() }},
	"realtime":   {kernel.RealTime, func() kernel.Program { return rtdevices.New() }},
	"rtsleep":    {kernel.RealTime, func() kernel.Program { return spin.NewRTSleep() }},
	"background": {kernel.Background, func() kernel.Program { return spin.NewBackground() }},
}

// Names lists the registered workloads.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entry is one word of a boot line.
type Entry struct {
	Name     string
	Count    int
	Priority kernel.Priority
}

// ParseBoot parses a boot line such as "ping pong piggy:3 memtest@realtime".
// Each word is name[:count][@priority]; priority defaults to the workload's.
func ParseBoot(line string) ([]Entry, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("boot line %q: %w", line, err)
	}

	entries := make([]Entry, 0, len(words))
	for _, w := range words {
		e, err := parseEntry(w)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntry(word string) (Entry, error) {
	name, prio, hasPrio := strings.Cut(word, "@")
	name, count, hasCount := strings.Cut(name, ":")
	name = strings.ToLower(name)

	wl, ok := registry[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	e := Entry{Name: name, Count: 1, Priority: wl.prio}

	if hasCount {
		n, err := strconv.Atoi(count)
		if err != nil || n < 1 || n > maxCopies {
			return Entry{}, fmt.Errorf("boot entry %q: bad count %q", word, count)
		}
		e.Count = n
	}
	if hasPrio {
		p, err := kernel.ParsePriority(prio)
		if err != nil {
			return Entry{}, fmt.Errorf("boot entry %q: %w", word, err)
		}
		e.Priority = p
	}
	return e, nil
}

// Init starts every boot entry and exits.
type Init struct {
	entries []Entry
}

func NewInit(entries []Entry) *Init {
	return &Init{entries: entries}
}

func (*Init) Name() string { return "init" }

func (t *Init) Run(ctx *kernel.Context) {
	log := ctx.Log()
	for _, e := range t.entries {
		wl, ok := registry[e.Name]
		if !ok {
			log.WithField("task", e.Name).Warn("init: unknown workload")
			continue
		}
		for i := 0; i < e.Count; i++ {
			pid := ctx.CreateProcess(wl.new(), e.Priority)
			log.WithFields(logrus.Fields{
				"task":     e.Name,
				"child":    pid,
				"priority": e.Priority,
			}).Info("init: started")
		}
	}
	ctx.Exit()
}
