package kernel

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

func (k *Kernel) newProcess(prog Program, prio Priority) *process {
	p := &process{
		pid:        k.nextPid,
		name:       programName(prog),
		prog:       prog,
		priority:   prio,
		allocStart: -1,
		exec:       newExec(),
	}
	k.nextPid++
	for i := range p.handles {
		p.handles[i] = -1
	}
	return p
}

func (k *Kernel) createProcess(prog Program, prio Priority) int {
	if prog == nil {
		return -1
	}
	if prio >= numPriorities {
		prio = Interactive
	}
	p := k.newProcess(prog, prio)
	k.live[p.pid] = p
	k.queues.push(p)
	k.spawn(p)
	k.procLog(p).WithField("priority", prio).Debug("kernel: process created")

	if k.running == nil {
		k.schedule()
	}
	return p.pid
}

func (k *Kernel) setRunning(p *process) {
	k.running = p
	k.current.Store(p)
}

// switchProcess requeues the running process, or retires it if its logic
// has returned, and selects the next one.
func (k *Kernel) switchProcess() {
	if cur := k.running; cur != nil {
		k.setRunning(nil)
		if cur.exec.Done() {
			k.retire(cur)
		} else {
			k.queues.push(cur)
		}
	}
	k.schedule()
}

// schedule selects the next process. Sleepers whose deadline passed are
// requeued after the pick; if the pick came up empty it is retried once
// with them.
func (k *Kernel) schedule() {
	k.hw.TLB.Clear()

	next := k.pick()
	k.wake()
	if next == nil {
		next = k.pick()
	}
	k.setRunning(next)
}

func (k *Kernel) pick() *process {
	p := k.queues.pick(k.rng.Float64())
	if p == nil {
		return nil
	}
	if p.timeouts.Load() > demoteAfter && p.priority > Background {
		from := p.priority
		p.priority--
		k.counters.demotions++
		k.procLog(p).WithFields(logrus.Fields{
			"from":     from,
			"to":       p.priority,
			"timeouts": p.timeouts.Load(),
		}).Info("kernel: process demoted")
	}
	return p
}

func (k *Kernel) wake() {
	if len(k.sleeping) == 0 {
		return
	}
	now := k.now()
	kept := k.sleeping[:0]
	for _, p := range k.sleeping {
		if now.Before(p.wakeAt) {
			kept = append(kept, p)
			continue
		}
		k.queues.push(p)
	}
	for i := len(kept); i < len(k.sleeping); i++ {
		k.sleeping[i] = nil
	}
	k.sleeping = kept
}

func (k *Kernel) sleep(p *process, d time.Duration) {
	if k.running != p {
		return
	}
	p.wakeAt = k.now().Add(d)
	k.sleeping = append(k.sleeping, p)
	k.setRunning(nil)
	k.schedule()
}

// exit selects a replacement before tearing p down.
func (k *Kernel) exit(p *process) {
	if k.running == p {
		k.setRunning(nil)
		k.schedule()
	}
	k.retire(p)
}

// retire removes p from every table and returns its memory and handles.
func (k *Kernel) retire(p *process) {
	k.queues.remove(p)
	for i, sp := range k.sleeping {
		if sp == p {
			k.sleeping = append(k.sleeping[:i], k.sleeping[i+1:]...)
			break
		}
	}
	delete(k.live, p.pid)
	delete(k.waiting, p.pid)

	k.releaseAll(p)
	k.closeAll(p)
	p.inbox = nil
	k.procLog(p).Debug("kernel: process exited")
}

func (k *Kernel) sendMessage(from *process, m Message) bool {
	msg := m.Clone()
	msg.Sender = from.pid

	target, ok := k.live[msg.Target]
	if !ok {
		k.procLog(from).WithField("target", msg.Target).Debug("kernel: message to unknown pid dropped")
		return false
	}
	target.inbox = append(target.inbox, msg)
	if _, parked := k.waiting[target.pid]; parked {
		delete(k.waiting, target.pid)
		k.queues.push(target)
	}
	return true
}

func (k *Kernel) waitForMessage(p *process) *Message {
	if len(p.inbox) > 0 {
		m := p.inbox[0]
		p.inbox[0] = Message{}
		p.inbox = p.inbox[1:]
		return &m
	}
	k.waiting[p.pid] = p
	if k.running == p {
		k.setRunning(nil)
		k.schedule()
	}
	return nil
}

// pidByName searches the run queues in priority order, then every live
// process by pid.
func (k *Kernel) pidByName(name string) int {
	for _, prio := range []Priority{RealTime, Interactive, Background} {
		for _, p := range k.queues.q[prio] {
			if strings.EqualFold(p.name, name) {
				return p.pid
			}
		}
	}
	for _, pid := range k.livePids() {
		if strings.EqualFold(k.live[pid].name, name) {
			return pid
		}
	}
	return -1
}

func (k *Kernel) livePids() []int {
	pids := make([]int, 0, len(k.live))
	for pid := range k.live {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}
