package vfs

import (
	"fmt"
	"strconv"
	"strings"

	"tinygo.org/x/tinyfs"
)

const (
	memBlockSize     = 1024
	defaultMemBlocks = 256
)

type memFile struct {
	dev *tinyfs.MemBlockDevice
	pos int64
}

// MemDevice is a RAM block device. "mem 64" opens a fresh 64 KiB volume.
//
// Writes past the end are truncated and report the short count, reads past
// the end return fewer bytes.
type MemDevice struct {
	open slots[*memFile]
}

func NewMemDevice() *MemDevice {
	return &MemDevice{open: newSlots[*memFile](deviceSlots)}
}

func (d *MemDevice) Open(spec string) (int, error) {
	blocks := defaultMemBlocks
	if s := strings.TrimSpace(spec); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return -1, fmt.Errorf("%w: mem blocks %q", ErrBadSpec, s)
		}
		blocks = n
	}
	if !d.open.free() {
		return -1, ErrNoSlot
	}
	return d.open.put(&memFile{dev: tinyfs.NewMemoryDevice(memBlockSize, memBlockSize, blocks)})
}

func (d *MemDevice) Close(id int) error {
	_, err := d.open.drop(id)
	return err
}

func (d *MemDevice) Read(id, size int) ([]byte, error) {
	f, err := d.open.get(id)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	n := f.remaining(size)
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	got, err := f.dev.ReadAt(buf, f.pos)
	if err != nil {
		return nil, fmt.Errorf("read mem at %d: %w", f.pos, err)
	}
	f.pos += int64(got)
	return buf[:got], nil
}

func (d *MemDevice) Write(id int, data []byte) (int, error) {
	f, err := d.open.get(id)
	if err != nil {
		return 0, err
	}
	n := f.remaining(len(data))
	if n == 0 {
		return 0, nil
	}
	got, err := f.dev.WriteAt(data[:n], f.pos)
	if err != nil {
		return got, fmt.Errorf("write mem at %d: %w", f.pos, err)
	}
	f.pos += int64(got)
	return got, nil
}

func (d *MemDevice) Seek(id, to int) error {
	f, err := d.open.get(id)
	if err != nil {
		return err
	}
	if to < 0 || int64(to) > f.dev.Size() {
		return fmt.Errorf("%w: seek %d", ErrBadSize, to)
	}
	f.pos = int64(to)
	return nil
}

func (f *memFile) remaining(want int) int {
	left := f.dev.Size() - f.pos
	if left <= 0 {
		return 0
	}
	if int64(want) > left {
		return int(left)
	}
	return want
}
