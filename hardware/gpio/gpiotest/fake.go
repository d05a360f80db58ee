// Package gpiotest provides an in-memory GPIO that records every operation.
// Written pins loop back, so a Read after a Write returns the written level.
package gpiotest

import (
	"fmt"
	"sync"

	"github.com/gloworm-vision/lcdpanel/hardware/gpio"
)

// OpKind identifies a recorded operation.
type OpKind int

const (
	OpConfigure OpKind = iota
	OpWrite
	OpRead
)

// Op is one recorded GPIO call.
type Op struct {
	Kind  OpKind
	Pins  []int
	Dir   gpio.Direction
	Pin   int
	Level gpio.Level
}

// Fake is a GPIO backend for tests.
type Fake struct {
	mu     sync.Mutex
	ops    []Op
	levels map[int]gpio.Level
	dirs   map[int]gpio.Direction
	closed bool

	// Err, when set, is returned from every call.
	Err error
}

var _ gpio.GPIO = &Fake{}

func New() *Fake {
	return &Fake{
		levels: make(map[int]gpio.Level),
		dirs:   make(map[int]gpio.Direction),
	}
}

func (f *Fake) Configure(pins []int, dir gpio.Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return err
	}

	for _, pin := range pins {
		f.dirs[pin] = dir
	}
	f.ops = append(f.ops, Op{Kind: OpConfigure, Pins: append([]int(nil), pins...), Dir: dir})

	return nil
}

func (f *Fake) Write(pin int, level gpio.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return err
	}

	f.levels[pin] = level
	f.ops = append(f.ops, Op{Kind: OpWrite, Pin: pin, Level: level})

	return nil
}

func (f *Fake) Read(pin int) (gpio.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return gpio.Low, err
	}

	f.ops = append(f.ops, Op{Kind: OpRead, Pin: pin, Level: f.levels[pin]})

	return f.levels[pin], nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return gpio.ErrClosed
	}
	f.closed = true

	return nil
}

// SetLevel drives a pin from the outside, e.g. a button being pressed.
func (f *Fake) SetLevel(pin int, level gpio.Level) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.levels[pin] = level
}

// Level returns the last level of a pin.
func (f *Fake) Level(pin int) gpio.Level {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.levels[pin]
}

// Direction returns the last configured direction of a pin and whether it
// was configured at all.
func (f *Fake) Direction(pin int) (gpio.Direction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir, ok := f.dirs[pin]
	return dir, ok
}

// Ops returns a copy of all recorded operations.
func (f *Fake) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Op(nil), f.ops...)
}

// Writes returns the recorded writes only.
func (f *Fake) Writes() []Op {
	var writes []Op
	for _, op := range f.Ops() {
		if op.Kind == OpWrite {
			writes = append(writes, op)
		}
	}

	return writes
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Reset forgets recorded operations but keeps pin state.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = nil
}

func (f *Fake) check() error {
	if f.closed {
		return fmt.Errorf("fake gpio: %w", gpio.ErrClosed)
	}

	return f.Err
}
