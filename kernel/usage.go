package kernel

import "github.com/Workiva/go-datastructures/bitarray"

// DefaultUsageSlots is the size of the shared usage table.
const DefaultUsageSlots = 1000

// UsageTable tracks which slots are taken. Physical frame numbers and swap
// block numbers index the same table.
type UsageTable struct {
	bits bitarray.BitArray
	size int
	used int
}

func NewUsageTable(size int) *UsageTable {
	if size <= 0 {
		size = DefaultUsageSlots
	}
	return &UsageTable{bits: bitarray.NewBitArray(uint64(size)), size: size}
}

// Claim marks and returns the first free slot below limit, or -1.
func (u *UsageTable) Claim(limit int) int {
	if limit > u.size {
		limit = u.size
	}
	for i := 0; i < limit; i++ {
		if u.InUse(i) {
			continue
		}
		if err := u.bits.SetBit(uint64(i)); err != nil {
			return -1
		}
		u.used++
		return i
	}
	return -1
}

// Release frees slot i. It reports whether the slot was taken.
func (u *UsageTable) Release(i int) bool {
	if !u.InUse(i) {
		return false
	}
	if err := u.bits.ClearBit(uint64(i)); err != nil {
		return false
	}
	u.used--
	return true
}

func (u *UsageTable) InUse(i int) bool {
	if i < 0 || i >= u.size {
		return false
	}
	ok, err := u.bits.GetBit(uint64(i))
	return err == nil && ok
}

func (u *UsageTable) Used() int { return u.used }
func (u *UsageTable) Free() int { return u.size - u.used }

// snapshot copies the table into dst, growing it if needed.
func (u *UsageTable) snapshot(dst []bool) []bool {
	if cap(dst) < u.size {
		dst = make([]bool, u.size)
	}
	dst = dst[:u.size]
	for i := range dst {
		dst[i] = u.InUse(i)
	}
	return dst
}
