package vfs

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// VFSSlots is the number of files the VFS can hold open at once.
const VFSSlots = 20

type openFile struct {
	kind string
	dev  Device
	id   int
}

// VFS routes "kind args..." open specs to registered devices and hands out
// its own ids for the resulting handles.
type VFS struct {
	devices map[string]Device
	files   slots[openFile]
}

// New returns an empty VFS.
func New() *VFS {
	return &VFS{
		devices: make(map[string]Device),
		files:   newSlots[openFile](VFSSlots),
	}
}

// Register makes d reachable under kind ("random", "file", ...).
func (v *VFS) Register(kind string, d Device) {
	v.devices[strings.ToLower(kind)] = d
}

// Open splits spec into words; the first names the device and the rest is
// passed to that device's Open.
func (v *VFS) Open(spec string) (int, error) {
	words, err := shlex.Split(spec)
	if err != nil {
		return -1, fmt.Errorf("%w: %q: %v", ErrBadSpec, spec, err)
	}
	if len(words) == 0 {
		return -1, fmt.Errorf("%w: %q", ErrBadSpec, spec)
	}
	kind := strings.ToLower(words[0])
	d, ok := v.devices[kind]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownDevice, kind)
	}
	if !v.files.free() {
		return -1, ErrNoSlot
	}

	id, err := d.Open(strings.Join(words[1:], " "))
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", kind, err)
	}
	return v.files.put(openFile{kind: kind, dev: d, id: id})
}

func (v *VFS) Close(id int) error {
	f, err := v.files.drop(id)
	if err != nil {
		return err
	}
	return f.dev.Close(f.id)
}

func (v *VFS) Read(id, size int) ([]byte, error) {
	f, err := v.files.get(id)
	if err != nil {
		return nil, err
	}
	return f.dev.Read(f.id, size)
}

func (v *VFS) Write(id int, data []byte) (int, error) {
	f, err := v.files.get(id)
	if err != nil {
		return 0, err
	}
	return f.dev.Write(f.id, data)
}

func (v *VFS) Seek(id, to int) error {
	f, err := v.files.get(id)
	if err != nil {
		return err
	}
	return f.dev.Seek(f.id, to)
}

// Kind returns the device name behind id, or "" if id is not open.
func (v *VFS) Kind(id int) string {
	f, err := v.files.get(id)
	if err != nil {
		return ""
	}
	return f.kind
}
