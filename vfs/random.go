package vfs

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// deviceSlots is the number of handles each leaf device can hold open.
const deviceSlots = 10

// RandomDevice produces a pseudo random byte stream per handle.
//
// "random 42" is deterministic; "random" seeds from the clock. Writes are
// accepted and discarded with a count of 0.
type RandomDevice struct {
	open slots[*rand.Rand]
}

func NewRandomDevice() *RandomDevice {
	return &RandomDevice{open: newSlots[*rand.Rand](deviceSlots)}
}

func (d *RandomDevice) Open(spec string) (int, error) {
	seed := uint64(time.Now().UnixNano())
	if s := strings.TrimSpace(spec); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return -1, fmt.Errorf("random seed %q: %w", s, err)
		}
		seed = uint64(n)
	}
	return d.open.put(rand.New(rand.NewPCG(seed, seed)))
}

func (d *RandomDevice) Close(id int) error {
	_, err := d.open.drop(id)
	return err
}

func (d *RandomDevice) Read(id, size int) ([]byte, error) {
	r, err := d.open.get(id)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(r.Uint32())
	}
	return buf, nil
}

func (d *RandomDevice) Write(id int, data []byte) (int, error) {
	if _, err := d.open.get(id); err != nil {
		return 0, err
	}
	return 0, nil
}

// Seek discards to bytes from the stream.
func (d *RandomDevice) Seek(id, to int) error {
	r, err := d.open.get(id)
	if err != nil {
		return err
	}
	for i := 0; i < to; i++ {
		r.Uint32()
	}
	return nil
}
