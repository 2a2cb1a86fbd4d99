package kernel

func (k *Kernel) open(p *process, spec string) int {
	slot := -1
	for i, id := range p.handles {
		if id < 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		k.procLog(p).WithField("spec", spec).Warn("kernel: handle table full")
		return -1
	}
	id, err := k.dev.Open(spec)
	if err != nil {
		k.procLog(p).WithError(err).WithField("spec", spec).Warn("kernel: open failed")
		return -1
	}
	p.handles[slot] = id
	return slot
}

// handle maps a process handle to its device id. Bad handles are logged.
func (k *Kernel) handle(p *process, h int, call Call) (int, bool) {
	if h < 0 || h >= MaxHandles || p.handles[h] < 0 {
		k.procLog(p).WithField("handle", h).WithField("call", call).Warn("kernel: invalid handle")
		return -1, false
	}
	return p.handles[h], true
}

func (k *Kernel) close(p *process, h int) {
	id, ok := k.handle(p, h, CallClose)
	if !ok {
		return
	}
	p.handles[h] = -1
	if err := k.dev.Close(id); err != nil {
		k.procLog(p).WithError(err).Warn("kernel: close failed")
	}
}

func (k *Kernel) read(p *process, h, size int) []byte {
	id, ok := k.handle(p, h, CallRead)
	if !ok {
		return nil
	}
	data, err := k.dev.Read(id, size)
	if err != nil {
		k.procLog(p).WithError(err).Warn("kernel: read failed")
		return nil
	}
	return data
}

func (k *Kernel) write(p *process, h int, data []byte) int {
	id, ok := k.handle(p, h, CallWrite)
	if !ok {
		return -1
	}
	n, err := k.dev.Write(id, data)
	if err != nil {
		k.procLog(p).WithError(err).Warn("kernel: write failed")
		if n == 0 {
			return -1
		}
	}
	return n
}

func (k *Kernel) seek(p *process, h, to int) {
	id, ok := k.handle(p, h, CallSeek)
	if !ok {
		return
	}
	if err := k.dev.Seek(id, to); err != nil {
		k.procLog(p).WithError(err).Warn("kernel: seek failed")
	}
}

// closeAll releases every handle p still holds.
func (k *Kernel) closeAll(p *process) {
	for h, id := range p.handles {
		if id < 0 {
			continue
		}
		p.handles[h] = -1
		if err := k.dev.Close(id); err != nil {
			k.procLog(p).WithError(err).WithField("handle", h).Debug("kernel: close on exit failed")
		}
	}
}
