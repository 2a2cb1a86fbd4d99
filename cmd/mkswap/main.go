package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"coopos/hal"
)

const (
	defaultSwapPath  = "swapfile.dat"
	defaultSwapPages = 1024
)

func main() {
	var outPath string
	var pages uint
	var fill uint
	flag.StringVar(&outPath, "out", defaultSwapPath, "Output swap file path.")
	flag.UintVar(&pages, "pages", defaultSwapPages, "Swap size in pages.")
	flag.UintVar(&fill, "fill", 0, "Fill byte.")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if fill > 0xFF {
		fmt.Fprintln(os.Stderr, "error: -fill must be a byte")
		os.Exit(2)
	}

	if err := create(outPath, int(pages), byte(fill)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d pages, %d bytes)\n", outPath, pages, pages*hal.PageSize)
}

// create writes a swap file of pages blocks, each filled with fill.
func create(path string, pages int, fill byte) error {
	if pages <= 0 {
		return fmt.Errorf("swap: invalid page count %d", pages)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open swap file %q: %w", path, err)
	}

	page := bytes.Repeat([]byte{fill}, hal.PageSize)
	for i := 0; i < pages; i++ {
		if _, err := f.Write(page); err != nil {
			_ = f.Close()
			return fmt.Errorf("write swap page %d: %w", i, err)
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync swap file %q: %w", path, err)
	}
	return f.Close()
}
