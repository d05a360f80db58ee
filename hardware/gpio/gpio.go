package gpio

import "errors"

// Level describes the binary state of a GPIO pin: either LOW or HIGH.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Direction selects whether a pin is driven (Output) or sampled (Input).
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}

	return "input"
}

// MaxPin is the highest GPIO line on the BCM2835 family.
const MaxPin = 53

var (
	// ErrInvalidPin is returned for pins outside 0..MaxPin.
	ErrInvalidPin = errors.New("invalid gpio pin")

	// ErrClosed is returned when the underlying register block or connection
	// has already been released.
	ErrClosed = errors.New("gpio is closed")
)

type GPIO interface {
	// Configure sets the direction of every pin in pins.
	Configure(pins []int, dir Direction) error

	// Write sets a pin to LOW or HIGH
	Write(pin int, level Level) error

	// Read samples the current level of a pin.
	Read(pin int) (Level, error)

	Close() error
}

// PWM is implemented by backends with hardware PWM support.
type PWM interface {
	// PWM sets the frequency and duty cycle (0 - 1) for a given pin.
	PWM(pin int, frequency int, duty float64) error
}

func validPin(pin int) bool {
	return pin >= 0 && pin <= MaxPin
}
