// Package vfs provides the Device capability used by the kernel and a
// virtual file system that routes open requests to devices by name.
package vfs

import "errors"

// Device is a handle based byte device.
//
// Open returns a device-local id. Read may return fewer bytes than asked
// (end of data); Write returns how many bytes were accepted.
type Device interface {
	Open(spec string) (int, error)
	Close(id int) error
	Read(id, size int) ([]byte, error)
	Write(id int, data []byte) (int, error)
	Seek(id, to int) error
}

var (
	ErrBadSpec       = errors.New("vfs: bad open spec")
	ErrUnknownDevice = errors.New("vfs: unknown device")
	ErrNoSlot        = errors.New("vfs: no free slot")
	ErrBadHandle     = errors.New("vfs: bad handle")
	ErrBadSize       = errors.New("vfs: bad size")
)

// slots is a fixed size table of open entries keyed by index.
type slots[T any] struct {
	used []bool
	v    []T
}

func newSlots[T any](n int) slots[T] {
	return slots[T]{used: make([]bool, n), v: make([]T, n)}
}

func (s *slots[T]) put(v T) (int, error) {
	for i, u := range s.used {
		if !u {
			s.used[i] = true
			s.v[i] = v
			return i, nil
		}
	}
	return -1, ErrNoSlot
}

func (s *slots[T]) get(id int) (T, error) {
	var zero T
	if id < 0 || id >= len(s.used) || !s.used[id] {
		return zero, ErrBadHandle
	}
	return s.v[id], nil
}

func (s *slots[T]) free() bool {
	for _, u := range s.used {
		if !u {
			return true
		}
	}
	return false
}

func (s *slots[T]) drop(id int) (T, error) {
	v, err := s.get(id)
	if err != nil {
		return v, err
	}
	var zero T
	s.used[id] = false
	s.v[id] = zero
	return v, nil
}
