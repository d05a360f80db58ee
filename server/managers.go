package server

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/gloworm-vision/lcdpanel/hardware"
)

// hardwareManager synchronizes access to the underlying hardware. We can't be
// passing out hardware and then close it while a caller might be using it,
// so swaps take the write lock and users hold the read lock for the length
// of their call.
type hardwareManager struct {
	hardware hardware.Hardware
	mu       *sync.RWMutex
}

// Update replaces the hardware with one built from config. The old hardware
// is always dropped, even when closing it fails.
func (h *hardwareManager) Update(config hardware.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var closeErr error
	if h.hardware != nil {
		if err := h.hardware.Close(); err != nil {
			closeErr = fmt.Errorf("unable to close old hardware: %w", err)
		}
		h.hardware = nil
	}

	newHardware, err := hardware.New(config)
	if err != nil {
		return multierr.Append(closeErr, fmt.Errorf("unable to create new hardware from config: %w", err))
	}
	h.hardware = newHardware

	return closeErr
}

func (h *hardwareManager) View(fn func(h hardware.Hardware)) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	fn(h.hardware)
}

func (h *hardwareManager) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hardware == nil {
		return nil
	}

	err := h.hardware.Close()
	h.hardware = nil

	return err
}

// managedDevice adapts whatever hardware is current to command.Device.
type managedDevice struct {
	manager *hardwareManager
}

func (d managedDevice) Render(text []byte) error {
	var err error
	d.manager.View(func(h hardware.Hardware) {
		display, ok := h.(hardware.TextDisplay)
		if !ok {
			err = hardware.Unsupported("hardware %s has no display", name(h))
			return
		}

		err = display.Render(text)
	})

	return err
}

func (d managedDevice) Pressed() (bool, error) {
	var (
		pressed bool
		err     error
	)
	d.manager.View(func(h hardware.Hardware) {
		button, ok := h.(hardware.Button)
		if !ok {
			err = hardware.Unsupported("hardware %s has no button", name(h))
			return
		}

		pressed, err = button.Pressed()
	})

	return pressed, err
}

func name(h hardware.Hardware) string {
	if h == nil {
		return "<none>"
	}

	return h.Name()
}
