package gpio

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// Pigpio is used for controlling GPIO over the pigpio socket interface
type Pigpio struct {
	mu   sync.Mutex
	conn net.Conn
}

// compile-time check for whether Pigpio satisfies the GPIO and PWM interfaces
var (
	_ GPIO = &Pigpio{}
	_ PWM  = &Pigpio{}
)

// DialPigpio dials into the pigpio socket interface (normally running on port 8888)
func DialPigpio(addr string) (*Pigpio, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial into pigpio socket: %w", err)
	}

	return &Pigpio{conn: conn}, nil
}

// Close closes the underlying pigpio socket interface connection
func (p *Pigpio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return fmt.Errorf("connection is already closed: %w", ErrClosed)
	}

	err := p.conn.Close()
	p.conn = nil

	return err
}

// Configure sets the mode of each pin. pigpio has no batched mode command,
// so pins are set one at a time.
func (p *Pigpio) Configure(pins []int, dir Direction) error {
	mode := uint32(0)
	if dir == Output {
		mode = 1
	}

	for _, pin := range pins {
		if !validPin(pin) {
			return fmt.Errorf("unable to configure pin %d as %s: %w", pin, dir, ErrInvalidPin)
		}

		if _, err := p.command(cmd{Cmd: modes, P1: uint32(pin), P2: mode}); err != nil {
			return fmt.Errorf("unable to set pin %d to %s: %w", pin, dir, err)
		}
	}

	return nil
}

// Write sets a GPIO pin to LOW or HIGH.
func (p *Pigpio) Write(pin int, level Level) error {
	if !validPin(pin) {
		return fmt.Errorf("unable to write pin %d: %w", pin, ErrInvalidPin)
	}

	var rawLevel uint32
	if level {
		rawLevel = 1
	}

	_, err := p.command(cmd{Cmd: write, P1: uint32(pin), P2: rawLevel})
	return err
}

// Read returns the level of a GPIO pin.
func (p *Pigpio) Read(pin int) (Level, error) {
	if !validPin(pin) {
		return Low, fmt.Errorf("unable to read pin %d: %w", pin, ErrInvalidPin)
	}

	res, err := p.command(cmd{Cmd: read, P1: uint32(pin)})
	if err != nil {
		return Low, err
	}

	return Level(res != 0), nil
}

// PWM sets frequency and duty cycle for hardware PWM on the given pin.
func (p *Pigpio) PWM(pin int, frequency int, duty float64) error {
	if !validPin(pin) {
		return fmt.Errorf("unable to set pwm on pin %d: %w", pin, ErrInvalidPin)
	}

	return p.hp(uint32(pin), uint32(frequency), uint32(float64(1000000)*duty))
}

type cmd struct {
	Cmd uint32
	P1  uint32
	P2  uint32
	P3  uint32
}

const (
	modes uint32 = 0
	read  uint32 = 3
	write uint32 = 4
	hp    uint32 = 86
)

// command sends a request and returns the result field of the response.
// pigpio reports failures as a negative result.
func (p *Pigpio) command(request interface{}) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return 0, fmt.Errorf("not connected to pigpio socket interface: %w", ErrClosed)
	}

	if err := binary.Write(p.conn, binary.LittleEndian, request); err != nil {
		return 0, fmt.Errorf("unable to write request to socket: %w", err)
	}

	var response cmd
	if err := binary.Read(p.conn, binary.LittleEndian, &response); err != nil {
		return 0, fmt.Errorf("unable to read response from socket: %w", err)
	}

	res := int32(response.P3)
	if res < 0 {
		return res, fmt.Errorf("pigpio command %d failed with code %d", response.Cmd, res)
	}

	return res, nil
}

// hp sets frequency (1-125,000,000) and duty cycle (1-1000000) for hardware PWM on the specified pin.
func (p *Pigpio) hp(pin, frequency, duty uint32) error {
	request := struct {
		Cmd uint32
		P1  uint32
		P2  uint32
		P3  uint32
		Ext uint32
	}{
		Cmd: hp,
		P1:  pin,
		P2:  frequency,
		P3:  4,
		Ext: duty,
	}

	_, err := p.command(request)
	return err
}
