//go:build !cgo

package hal

// RunWindow reports ErrNoWindow: window mode needs cgo.
func RunWindow(_ HAL, _ func() error) error {
	return ErrNoWindow
}
