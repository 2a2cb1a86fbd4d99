package hal

const (
	// PageSize is the size of a virtual page and of a physical frame.
	PageSize = 1024
	// MemorySize is the size of simulated physical memory.
	MemorySize = 1024 * 1024
	// Frames is the number of physical frames.
	Frames = MemorySize / PageSize
	// TLBRows is the number of translation cache rows.
	TLBRows = 2
)

// Hardware is the simulated machine: physical memory plus the TLB.
//
// It holds no policy. The kernel mutates it only during its own turn and the
// running process reads and writes memory through its TLB translations.
type Hardware struct {
	Memory [MemorySize]byte
	TLB    TLB
}

// NewHardware returns zeroed memory with an empty TLB.
func NewHardware() *Hardware {
	h := &Hardware{}
	h.TLB.Clear()
	return h
}

// Frame returns the bytes of physical frame p.
func (h *Hardware) Frame(p int) []byte {
	off := p * PageSize
	return h.Memory[off : off+PageSize : off+PageSize]
}

// TLBEntry maps one virtual page to a physical frame. -1 marks an empty row.
type TLBEntry struct {
	Virtual  int
	Physical int
}

// TLB is a two row translation cache.
type TLB struct {
	rows [TLBRows]TLBEntry
}

// Lookup returns the physical frame cached for virtual page v.
func (t *TLB) Lookup(v int) (int, bool) {
	if v < 0 {
		return -1, false
	}
	for _, r := range t.rows {
		if r.Virtual == v && r.Physical >= 0 {
			return r.Physical, true
		}
	}
	return -1, false
}

// Install overwrites row with {v -> p}.
func (t *TLB) Install(row, v, p int) {
	if row < 0 || row >= TLBRows {
		return
	}
	t.rows[row] = TLBEntry{Virtual: v, Physical: p}
}

// Clear empties every row.
func (t *TLB) Clear() {
	for i := range t.rows {
		t.rows[i] = TLBEntry{Virtual: -1, Physical: -1}
	}
}

// InvalidateFrame drops any row pointing at physical frame p.
func (t *TLB) InvalidateFrame(p int) {
	for i, r := range t.rows {
		if r.Physical == p {
			t.rows[i] = TLBEntry{Virtual: -1, Physical: -1}
		}
	}
}

// Rows returns a copy of the rows.
func (t *TLB) Rows() [TLBRows]TLBEntry {
	return t.rows
}
