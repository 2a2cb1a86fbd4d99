package peer

import (
	"time"

	"coopos/kernel"

	"github.com/sirupsen/logrus"
)

const (
	lookupRetry = 10 * time.Millisecond
	pause       = 10 * time.Millisecond
)

// Task exchanges counter messages with the process named Peer. Each
// received counter is answered with counter+1.
type Task struct {
	Self string
	Peer string
	// Opens makes this side send the first message.
	Opens bool
	// Rounds stops the task after that many messages; 0 runs forever.
	Rounds int
}

// New returns a peer named self talking to peer.
func New(self, peer string, opens bool) *Task {
	return &Task{Self: self, Peer: peer, Opens: opens}
}

func (t *Task) Name() string { return t.Self }

func (t *Task) Run(ctx *kernel.Context) {
	log := ctx.Log()

	peer := ctx.GetPidByName(t.Peer)
	for peer < 0 {
		ctx.Sleep(lookupRetry)
		peer = ctx.GetPidByName(t.Peer)
	}
	self := ctx.GetPid()
	log.WithField("peer", peer).Info("peer: found")

	if t.Opens && !t.send(ctx, peer, 0) {
		return
	}
	for n := 0; t.Rounds == 0 || n < t.Rounds; n++ {
		ctx.Cooperate()
		m := Receive(ctx)
		log.WithFields(logrus.Fields{
			"from": m.Sender,
			"to":   self,
			"what": m.Purpose,
		}).Info("peer: received")

		if !t.send(ctx, peer, m.Purpose+1) {
			return
		}
		ctx.Sleep(pause)
	}
}

func (t *Task) send(ctx *kernel.Context, peer, n int) bool {
	if ctx.SendMessage(kernel.NewMessage(peer, n, []byte(t.Self))) {
		return true
	}
	ctx.Log().WithField("peer", peer).Info("peer: gone")
	return false
}

// Receive blocks until a message arrives. WaitForMessage returns nil when a
// parked process is woken, so it is retried.
func Receive(ctx *kernel.Context) *kernel.Message {
	for {
		if m := ctx.WaitForMessage(); m != nil {
			return m
		}
	}
}
