package kernel

// runQueues holds one FIFO per priority.
type runQueues struct {
	q [numPriorities][]*process
}

func (r *runQueues) push(p *process) {
	r.q[p.priority] = append(r.q[p.priority], p)
}

func (r *runQueues) pop(prio Priority) *process {
	q := r.q[prio]
	if len(q) == 0 {
		return nil
	}
	p := q[0]
	q[0] = nil
	r.q[prio] = q[1:]
	return p
}

func (r *runQueues) len(prio Priority) int {
	return len(r.q[prio])
}

func (r *runQueues) remove(p *process) bool {
	for prio := range r.q {
		for i, qp := range r.q[prio] {
			if qp == p {
				r.q[prio] = append(r.q[prio][:i], r.q[prio][i+1:]...)
				return true
			}
		}
	}
	return false
}

// popFirst pops from the first non-empty queue in order.
func (r *runQueues) popFirst(order ...Priority) *process {
	for _, prio := range order {
		if r.len(prio) > 0 {
			return r.pop(prio)
		}
	}
	return nil
}

// pick applies the weighted cross-queue policy to a uniform draw x in [0,1).
//
// With real-time work queued the split is 0.6/0.3/0.1, otherwise 0.75/0.25
// between interactive and background. An empty target falls back to
// real-time, then interactive.
func (r *runQueues) pick(x float64) *process {
	switch {
	case r.len(RealTime) > 0:
		switch {
		case x <= 0.6:
			return r.pop(RealTime)
		case x <= 0.9:
			return r.popFirst(Interactive, RealTime)
		default:
			return r.popFirst(Background, RealTime, Interactive)
		}
	case r.len(Interactive) > 0:
		if x < 0.75 {
			return r.pop(Interactive)
		}
		return r.popFirst(Background, RealTime, Interactive)
	default:
		return r.popFirst(Background, Interactive, RealTime)
	}
}
