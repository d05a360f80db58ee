//go:build !linux

package gpio

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrMapping is returned when the GPIO register block can't be mapped.
var ErrMapping = errors.New("unable to map gpio registers")

// MapConfig selects how the register block is mapped.
type MapConfig struct {
	// Device is either /dev/gpiomem (the block is at offset 0) or /dev/mem
	// (the block is at Base).
	Device string `json:"device" yaml:"device"`

	// Base is the physical address of the GPIO block, used with /dev/mem.
	Base int64 `json:"base" yaml:"base"`
}

// Map is only supported on linux.
func Map(config MapConfig) (*Bank, error) {
	return nil, fmt.Errorf("%w: not supported on %s", ErrMapping, runtime.GOOS)
}
