package kernel

import (
	"bytes"
	"errors"
	"testing"

	"coopos/hal"
)

func newVMKernel(t *testing.T, slots int, swapSpec string) (*Kernel, *process) {
	t.Helper()
	k, _ := newTestKernel(t, Options{UsageSlots: slots})
	id, err := k.dev.Open(swapSpec)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", swapSpec, err)
	}
	k.swap = id
	p := k.newProcess(Func("vm", idleFunc), Interactive)
	k.live[p.pid] = p
	return k, p
}

func TestUsageTableClaimRelease(t *testing.T) {
	u := NewUsageTable(4)
	for want := 0; want < 3; want++ {
		if got := u.Claim(3); got != want {
			t.Fatalf("Claim(3) = %d, want %d", got, want)
		}
	}
	if got := u.Claim(3); got != -1 {
		t.Fatalf("Claim(3) with the range full = %d, want -1", got)
	}
	if got := u.Claim(10); got != 3 {
		t.Fatalf("Claim(10) = %d, want 3", got)
	}
	if u.Free() != 0 || u.Used() != 4 {
		t.Fatalf("Free/Used = %d/%d, want 0/4", u.Free(), u.Used())
	}

	if !u.Release(1) {
		t.Fatalf("Release(1) = false, want true")
	}
	if u.Release(1) {
		t.Fatalf("second Release(1) = true, want false")
	}
	if u.Release(40) {
		t.Fatalf("Release(40) out of range = true, want false")
	}
	if got := u.Claim(4); got != 1 {
		t.Fatalf("Claim(4) after Release(1) = %d, want 1", got)
	}
}

func TestAllocateFirstFit(t *testing.T) {
	k, p := newVMKernel(t, 16, "mem 4")

	if got := k.allocate(p, 2*hal.PageSize); got != 0 {
		t.Fatalf("allocate(2 pages) = %d, want 0", got)
	}
	if got := k.allocate(p, hal.PageSize); got != 2*hal.PageSize {
		t.Fatalf("allocate(1 page) = %d, want %d", got, 2*hal.PageSize)
	}
	if p.allocStart != 2*hal.PageSize || p.allocSize != hal.PageSize {
		t.Fatalf("tracked allocation = %d/%d, want the latest one", p.allocStart, p.allocSize)
	}

	if !k.free(p, 0, 2*hal.PageSize) {
		t.Fatalf("free(0, 2 pages) = false, want true")
	}
	if got := k.allocate(p, 3*hal.PageSize); got != 3*hal.PageSize {
		t.Fatalf("allocate(3 pages) = %d, want %d (hole too small)", got, 3*hal.PageSize)
	}
	if got := k.allocate(p, MaxPages*hal.PageSize); got != -1 {
		t.Fatalf("allocate(all pages) = %d, want -1", got)
	}
	if k.free(p, (MaxPages-1)*hal.PageSize, 2*hal.PageSize) {
		t.Fatalf("free() past the address space = true, want false")
	}
}

func TestGetMappingZeroFills(t *testing.T) {
	k, p := newVMKernel(t, 4, "mem 4")
	frame := k.hw.Frame(0)
	for i := range frame {
		frame[i] = 0xEE
	}

	ok, err := k.getMapping(p, 5)
	if !ok || err != nil {
		t.Fatalf("getMapping(5) = %v, %v, want true, nil", ok, err)
	}
	m := p.mappings[5]
	if m == nil || m.Physical != 0 {
		t.Fatalf("mapping = %+v, want frame 0", m)
	}
	if !bytes.Equal(k.hw.Frame(0), make([]byte, hal.PageSize)) {
		t.Fatalf("new frame not zero filled")
	}
	if got, ok := k.hw.TLB.Lookup(5); !ok || got != 0 {
		t.Fatalf("TLB Lookup(5) = %d, %v, want 0, true", got, ok)
	}

	if ok, _ := k.getMapping(p, MaxPages); ok {
		t.Fatalf("getMapping(%d) = true, want false", MaxPages)
	}
}

func TestEvictFirstResidentAndSwapIn(t *testing.T) {
	k, p := newVMKernel(t, 2, "mem 8")
	k.allocate(p, 3*hal.PageSize)

	mustMap := func(vpage int) {
		t.Helper()
		if ok, err := k.getMapping(p, vpage); !ok || err != nil {
			t.Fatalf("getMapping(%d) = %v, %v", vpage, ok, err)
		}
	}

	mustMap(0)
	pattern := bytes.Repeat([]byte{0xA5}, hal.PageSize)
	copy(k.hw.Frame(p.mappings[0].Physical), pattern)
	frame0 := p.mappings[0].Physical

	mustMap(1)
	mustMap(2)

	if m := p.mappings[0]; m.Physical != -1 || m.Disk != 0 {
		t.Fatalf("page 0 mapping = %+v, want swapped to block 0", m)
	}
	if got := p.mappings[2].Physical; got != frame0 {
		t.Fatalf("page 2 frame = %d, want reclaimed frame %d", got, frame0)
	}
	if k.counters.swapOuts != 1 {
		t.Fatalf("swapOuts = %d, want 1", k.counters.swapOuts)
	}

	mustMap(0)
	if m := p.mappings[1]; m.Physical != -1 {
		t.Fatalf("page 1 mapping = %+v, want evicted as first resident page", m)
	}
	if !bytes.Equal(k.hw.Frame(p.mappings[0].Physical), pattern) {
		t.Fatalf("page 0 content lost across swap")
	}
	if p.mappings[0].Disk != 0 {
		t.Fatalf("page 0 block = %d, want it kept", p.mappings[0].Disk)
	}
}

// evictBetween fills three frames with pages of two processes, then faults
// one more page to force an eviction. It returns the process that lost a page.
func evictBetween(t *testing.T, seed uint64) (k *Kernel, a, b, victim *process) {
	t.Helper()
	k, _ = newTestKernel(t, Options{UsageSlots: 3, Seed: seed})
	id, err := k.dev.Open("mem 8")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	k.swap = id

	a = k.newProcess(Func("a", idleFunc), Interactive)
	b = k.newProcess(Func("b", idleFunc), Interactive)
	for _, p := range []*process{a, b} {
		k.live[p.pid] = p
		k.allocate(p, 2*hal.PageSize)
	}

	fill := func(p *process, vpage int, v byte) {
		t.Helper()
		if ok, err := k.getMapping(p, vpage); !ok || err != nil {
			t.Fatalf("getMapping(%s, %d) = %v, %v", p.name, vpage, ok, err)
		}
		copy(k.hw.Frame(p.mappings[vpage].Physical), bytes.Repeat([]byte{v}, hal.PageSize))
	}
	fill(a, 0, 0xA0)
	fill(a, 1, 0xA1)
	fill(b, 0, 0xB0)
	fill(b, 1, 0xB1)

	switch {
	case a.mappings[0].Physical < 0 && b.mappings[0].Physical >= 0:
		victim = a
	case b.mappings[0].Physical < 0 && a.mappings[0].Physical >= 0:
		victim = b
	default:
		t.Fatalf("page 0 frames = %d, %d, want exactly one evicted",
			a.mappings[0].Physical, b.mappings[0].Physical)
	}
	return k, a, b, victim
}

func TestEvictAcrossProcesses(t *testing.T) {
	k, a, _, victim := evictBetween(t, 7)

	if m := victim.mappings[0]; m.Disk != 0 {
		t.Fatalf("victim page 0 = %+v, want swapped to block 0", m)
	}
	if a.mappings[1].Physical < 0 {
		t.Fatalf("a page 1 evicted, want only a first resident page chosen")
	}
	if k.counters.swapOuts != 1 {
		t.Fatalf("swapOuts = %d, want 1", k.counters.swapOuts)
	}

	want := byte(0xA0)
	if victim.name == "b" {
		want = 0xB0
	}
	if ok, err := k.getMapping(victim, 0); !ok || err != nil {
		t.Fatalf("getMapping(victim, 0) = %v, %v", ok, err)
	}
	if !bytes.Equal(k.hw.Frame(victim.mappings[0].Physical), bytes.Repeat([]byte{want}, hal.PageSize)) {
		t.Fatalf("victim page 0 content lost across swap")
	}

	_, _, _, again := evictBetween(t, 7)
	if again.name != victim.name {
		t.Fatalf("seed 7 picked %s then %s, want the same victim", victim.name, again.name)
	}

	picked := map[string]bool{}
	for seed := uint64(1); seed <= 32; seed++ {
		_, _, _, v := evictBetween(t, seed)
		picked[v.name] = true
	}
	if !picked["a"] || !picked["b"] {
		t.Fatalf("victims over 32 seeds = %v, want both processes", picked)
	}
}

func TestEvictNoVictim(t *testing.T) {
	k, p := newVMKernel(t, 1, "mem 4")
	k.usage.Claim(1)

	ok, err := k.getMapping(p, 0)
	if ok || !errors.Is(err, ErrNoVictim) {
		t.Fatalf("getMapping() = %v, %v, want false, ErrNoVictim", ok, err)
	}
}

func TestSwapShortWrite(t *testing.T) {
	k, p := newVMKernel(t, 1, "mem 1")
	k.allocate(p, 3*hal.PageSize)

	for vpage := 0; vpage < 2; vpage++ {
		if ok, err := k.getMapping(p, vpage); !ok || err != nil {
			t.Fatalf("getMapping(%d) = %v, %v", vpage, ok, err)
		}
	}
	_, err := k.getMapping(p, 2)
	if !errors.Is(err, ErrSwapIO) {
		t.Fatalf("getMapping() past the swap device error = %v, want ErrSwapIO", err)
	}
}

func TestFreeReleasesFramesAndBlocks(t *testing.T) {
	k, p := newVMKernel(t, 8, "mem 8")
	addr := k.allocate(p, 4*hal.PageSize)
	for vpage := 0; vpage < 4; vpage++ {
		if ok, _ := k.getMapping(p, vpage); !ok {
			t.Fatalf("getMapping(%d) failed", vpage)
		}
	}
	k.hw.TLB.Install(0, 0, p.mappings[0].Physical)

	before := k.usage.Free()
	if !k.free(p, addr, 4*hal.PageSize) {
		t.Fatalf("free() = false, want true")
	}
	if got := k.usage.Free() - before; got != 4 {
		t.Fatalf("free() released %d slots, want 4", got)
	}
	if _, ok := k.hw.TLB.Lookup(0); ok {
		t.Fatalf("TLB still maps a freed page")
	}
	if k.free(p, addr, 4*hal.PageSize) {
		t.Fatalf("second free() = true, want false")
	}
}
