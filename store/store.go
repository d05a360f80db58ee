package store

import (
	"errors"
	"io"

	"github.com/gloworm-vision/lcdpanel/hardware"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("not found")

// Store describes a persistent storage engine for lcdpanel information.
type Store interface {
	HardwareConfig() (hardware.Config, error)
	PutHardwareConfig(h hardware.Config) error

	// DisplayText returns the text of the last successful render.
	DisplayText() (string, error)
	PutDisplayText(text string) error

	io.Closer
}
