// Package lcd drives an HD44780 character display over a 4-bit, write-only
// GPIO interface.
//
// Every byte goes out as two nibbles, high nibble first. Each nibble is
// latched by pulsing the enable line. No busy-flag polling is done; fixed
// delays are the only readiness signal, so RW is held low throughout.
package lcd

import (
	"fmt"
	"time"

	"github.com/gloworm-vision/lcdpanel/hardware/gpio"
)

// Mode selects how the controller interprets a byte (the RS line).
type Mode bool

const (
	Command   Mode = false
	Character Mode = true
)

func (m Mode) String() string {
	if m == Character {
		return "character"
	}

	return "command"
}

const (
	// NibbleSettle is held before, during and after every enable pulse. It is
	// well above the chip's minimum pulse width.
	NibbleSettle = 500 * time.Microsecond

	// ClearSettle is waited after the init sequence's clear display command.
	ClearSettle = 500 * time.Microsecond
)

// Commands used by Init.
const (
	CmdInitialize  byte = 0x33
	CmdFourBitMode byte = 0x32
	CmdEntryMode   byte = 0x06 // cursor moves right, no shift
	CmdDisplayOn   byte = 0x0C // display on, cursor off
	CmdClear       byte = 0x01
)

// InitSequence is sent in Command mode by Init, in order.
//
// The second CmdEntryMode matches the panel firmware this was brought up on;
// a 2-line function set (0x28) may have been intended there.
var InitSequence = []byte{
	CmdInitialize,
	CmdFourBitMode,
	CmdEntryMode,
	CmdDisplayOn,
	CmdEntryMode,
	CmdClear,
}

// Pins maps the display's lines to GPIO numbers.
type Pins struct {
	RS   int    `json:"rs" yaml:"rs"`
	RW   int    `json:"rw" yaml:"rw"`
	E    int    `json:"e" yaml:"e"`
	Data [4]int `json:"data" yaml:"data"` // D4, D5, D6, D7
}

// Lines returns every pin the display is wired to.
func (p Pins) Lines() []int {
	return []int{p.Data[0], p.Data[1], p.Data[2], p.Data[3], p.RS, p.RW, p.E}
}

// Controller speaks the HD44780 4-bit protocol on top of a GPIO backend.
// Calls block until the last nibble is latched. Controller is not safe for
// concurrent use.
type Controller struct {
	GPIO gpio.GPIO
	Pins Pins

	// Sleep waits between pin transitions. It defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Init sends InitSequence and waits ClearSettle for the display to be ready.
func (c *Controller) Init() error {
	for _, b := range InitSequence {
		if err := c.WriteCommand(b); err != nil {
			return fmt.Errorf("unable to initialize display: %w", err)
		}
	}

	c.sleep(ClearSettle)

	return nil
}

// Clear clears the display and returns the cursor home.
func (c *Controller) Clear() error {
	if err := c.WriteCommand(CmdClear); err != nil {
		return err
	}

	c.sleep(ClearSettle)

	return nil
}

// WriteCommand sends b as an instruction.
func (c *Controller) WriteCommand(b byte) error {
	return c.write(b, Command)
}

// WriteChar sends b as a character at the current cursor position.
func (c *Controller) WriteChar(b byte) error {
	return c.write(b, Character)
}

// WriteText sends every byte of text as a character. Nothing wraps: writing
// past the end of a line is left to the controller.
func (c *Controller) WriteText(text []byte) error {
	for i, b := range text {
		if err := c.WriteChar(b); err != nil {
			return fmt.Errorf("unable to write character %d of %d: %w", i+1, len(text), err)
		}
	}

	return nil
}

func (c *Controller) write(b byte, mode Mode) error {
	if err := c.GPIO.Write(c.Pins.RS, gpio.Level(mode)); err != nil {
		return fmt.Errorf("unable to set %s mode: %w", mode, err)
	}

	if err := c.writeNibble(b >> 4); err != nil {
		return fmt.Errorf("unable to write high nibble of %#02x: %w", b, err)
	}

	if err := c.writeNibble(b & 0x0F); err != nil {
		return fmt.Errorf("unable to write low nibble of %#02x: %w", b, err)
	}

	return nil
}

// writeNibble drives D4..D7 low, raises the lines for the set bits and then
// latches them.
func (c *Controller) writeNibble(nibble byte) error {
	for _, pin := range c.Pins.Data {
		if err := c.GPIO.Write(pin, gpio.Low); err != nil {
			return err
		}
	}

	for i, pin := range c.Pins.Data {
		if nibble&(1<<uint(i)) == 0 {
			continue
		}

		if err := c.GPIO.Write(pin, gpio.High); err != nil {
			return err
		}
	}

	return c.toggleEnable()
}

func (c *Controller) toggleEnable() error {
	c.sleep(NibbleSettle)

	if err := c.GPIO.Write(c.Pins.E, gpio.High); err != nil {
		return fmt.Errorf("unable to raise enable: %w", err)
	}

	c.sleep(NibbleSettle)

	if err := c.GPIO.Write(c.Pins.E, gpio.Low); err != nil {
		return fmt.Errorf("unable to drop enable: %w", err)
	}

	c.sleep(NibbleSettle)

	return nil
}

func (c *Controller) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}

	time.Sleep(d)
}
