//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
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

const devGPIOMem = "/dev/gpiomem"

// Map memory-maps the GPIO register block and returns a Bank that owns the
// mapping until Close.
func Map(config MapConfig) (*Bank, error) {
	device := config.Device
	if device == "" {
		device = devGPIOMem
	}

	var offset int64
	if device != devGPIOMem {
		offset = config.Base
	}

	file, err := os.OpenFile(device, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't open %s: %v", ErrMapping, device, err)
	}
	// the mapping outlives the descriptor
	defer file.Close()

	mem, err := unix.Mmap(int(file.Fd()), offset, blockSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s at %#x: %v", ErrMapping, device, offset, err)
	}

	bank := NewBank((*Registers)(unsafe.Pointer(&mem[0])))
	bank.unmap = func() error { return unix.Munmap(mem) }

	return bank, nil
}
