package hardware

import (
	"errors"
	"fmt"
)

// Hardware defines a common interface for hardware lcdpanel can run on
//
// This is a fairly minimal interface. Most of the time it should be type
// asserted to a more specific one: BinaryLight for the indicator LED, Button
// for the push button or TextDisplay for the character display.
type Hardware interface {
	Name() string

	// Close releases the hardware. It must not be used afterwards.
	Close() error
}

// BinaryLight describes hardware with an LED that can be toggled on/off
type BinaryLight interface {
	// SetLED turns the LED on or off
	SetLED(on bool) error
}

// DimmableLight describes hardware with an LED that can be dimmed
type DimmableLight interface {
	// SetLEDBrightness sets the LED brightness (from off - 0, to fully on - 1)
	SetLEDBrightness(v float64) error
}

// Button describes hardware with a push button.
type Button interface {
	// Pressed reports whether the button's level is high.
	Pressed() (bool, error)
}

// TextDisplay describes hardware with a character display.
type TextDisplay interface {
	// Render replaces the display contents with text.
	Render(text []byte) error
}

// ErrUnsupported is returned when the hardware can't perform an operation,
// e.g. dimming an LED without a PWM capable backend.
type ErrUnsupported struct {
	error
}

func (err ErrUnsupported) Is(target error) bool {
	_, ok := target.(ErrUnsupported)
	return ok
}

// Unsupported formats an ErrUnsupported.
func Unsupported(format string, args ...interface{}) error {
	return ErrUnsupported{fmt.Errorf(format, args...)}
}

// ErrNotConfigured is returned by New when the config names no hardware.
var ErrNotConfigured = errors.New("no hardware configured")

// Config selects and configures the hardware. Exactly one field should be set.
type Config struct {
	Panel *PanelConfig `json:"panel,omitempty" yaml:"panel"`
}

// New creates and activates the hardware described by config.
func New(config Config) (Hardware, error) {
	if config.Panel == nil {
		return nil, ErrNotConfigured
	}

	panel, err := OpenPanel(*config.Panel)
	if err != nil {
		return nil, fmt.Errorf("unable to open panel: %w", err)
	}

	return panel, nil
}
