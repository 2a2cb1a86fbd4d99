package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileDevice is a random access file store rooted at a host directory.
type FileDevice struct {
	root string
	open slots[*os.File]
}

func NewFileDevice(root string) *FileDevice {
	return &FileDevice{root: root, open: newSlots[*os.File](deviceSlots)}
}

// Open opens (creating if needed) the file named by spec for reading and writing.
func (d *FileDevice) Open(spec string) (int, error) {
	name := strings.TrimSpace(spec)
	if name == "" || !filepath.IsLocal(name) {
		return -1, fmt.Errorf("%w: file name %q", ErrBadSpec, name)
	}
	if !d.open.free() {
		return -1, ErrNoSlot
	}
	f, err := os.OpenFile(filepath.Join(d.root, name), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return -1, fmt.Errorf("open file %q: %w", name, err)
	}
	return d.open.put(f)
}

func (d *FileDevice) Close(id int) error {
	f, err := d.open.drop(id)
	if err != nil {
		return err
	}
	return f.Close()
}

// Read returns up to size bytes from the current offset; fewer at end of file.
func (d *FileDevice) Read(id, size int) ([]byte, error) {
	f, err := d.open.get(id)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return buf[:n], nil
}

func (d *FileDevice) Write(id int, data []byte) (int, error) {
	f, err := d.open.get(id)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if err != nil {
		return n, fmt.Errorf("write file: %w", err)
	}
	return n, nil
}

func (d *FileDevice) Seek(id, to int) error {
	f, err := d.open.get(id)
	if err != nil {
		return err
	}
	if _, err := f.Seek(int64(to), io.SeekStart); err != nil {
		return fmt.Errorf("seek file: %w", err)
	}
	return nil
}
