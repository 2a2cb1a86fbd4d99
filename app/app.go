// Package app wires the hardware, devices, kernel and monitor into one
// running system.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"

	"coopos/hal"
	"coopos/internal/buildinfo"
	"coopos/kernel"
	"coopos/monitor"
	"coopos/tasks"
	"coopos/vfs"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// monitorHeight splits the framebuffer: the monitor above, the console below.
const monitorHeight = 180

// System is one booted machine.
type System struct {
	cfg  Config
	log  *logrus.Logger
	h    hal.HAL
	fb   hal.Framebuffer
	vfs  *vfs.VFS
	k    *kernel.Kernel
	mon  *monitor.Monitor
	init kernel.Program
}

// New builds a system on h. Nothing runs until Run.
func New(h hal.HAL, cfg Config, log *logrus.Logger) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entries, err := tasks.ParseBoot(cfg.Boot)
	if err != nil {
		return nil, err
	}

	s := &System{cfg: cfg, log: log, h: h, init: tasks.NewInit(entries)}
	if d := h.Display(); d != nil {
		s.fb = d.Framebuffer()
	}

	s.vfs = vfs.New()
	s.vfs.Register("random", vfs.NewRandomDevice())
	s.vfs.Register("file", vfs.NewFileDevice(cfg.FileRoot))
	s.vfs.Register("mem", vfs.NewMemDevice())

	s.k = kernel.New(h.Hardware(), s.vfs, cfg.kernelOptions(log))

	if s.fb != nil {
		w, ht := s.fb.Width(), s.fb.Height()
		s.vfs.Register("console", vfs.NewConsoleDevice(s.fb, image.Rect(0, monitorHeight, w, ht)))
		s.mon = monitor.New(s.k, s.fb, image.Rect(0, 0, w, monitorHeight))
		installPanicHandler(s.k, s.fb)
	}
	return s, nil
}

// Kernel returns the system kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Step redraws the monitor. It is the host runner's per-frame callback.
func (s *System) Step() error {
	if s.mon == nil || s.k.InPanicMode() {
		return nil
	}
	return s.mon.Draw()
}

// Run boots the kernel and runs it with the quantum timer and the host
// runner until ctx is cancelled, the window closes, the headless tick budget
// runs out or the kernel halts.
func (s *System) Run(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"build": buildinfo.Short(),
		"boot":  s.cfg.Boot,
		"swap":  s.cfg.Swap,
	}).Info("app: starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.k.Run(gctx, s.init) })
	g.Go(func() error { return s.k.RunTimer(gctx) })

	var err error
	if s.cfg.Headless {
		g.Go(func() error {
			defer cancel()
			return hal.RunHeadless(gctx, s.Step, s.cfg.headless())
		})
		err = g.Wait()
	} else {
		werr := hal.RunWindow(s.h, s.Step)
		cancel()
		err = g.Wait()
		if werr != nil {
			err = werr
		}
	}

	if s.cfg.Snapshot != "" && s.fb != nil {
		if serr := monitor.Snapshot(s.fb, s.cfg.Snapshot); serr != nil {
			s.log.WithError(serr).Warn("app: snapshot failed")
		} else {
			s.log.WithField("path", s.cfg.Snapshot).Info("app: snapshot written")
		}
	}

	if errors.Is(err, context.Canceled) && !s.k.InPanicMode() {
		return nil
	}
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}
