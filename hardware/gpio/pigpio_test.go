package gpio

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
)

// fakePigpiod answers MODES/READ/WRITE/HP with loopback pin levels.
type fakePigpiod struct {
	mu     sync.Mutex
	levels map[uint32]uint32
	modes  map[uint32]uint32
	hp     []uint32
}

func startFakePigpiod(t *testing.T) (*fakePigpiod, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	d := &fakePigpiod{levels: map[uint32]uint32{}, modes: map[uint32]uint32{}}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		d.serve(conn)
	}()

	return d, ln.Addr().String()
}

func (d *fakePigpiod) serve(conn io.ReadWriter) {
	for {
		var req cmd
		if err := binary.Read(conn, binary.LittleEndian, &req); err != nil {
			return
		}

		res := cmd{Cmd: req.Cmd, P1: req.P1, P2: req.P2}

		d.mu.Lock()
		switch req.Cmd {
		case modes:
			d.modes[req.P1] = req.P2
		case write:
			d.levels[req.P1] = req.P2
		case read:
			res.P3 = d.levels[req.P1]
		case hp:
			var ext uint32
			if err := binary.Read(conn, binary.LittleEndian, &ext); err != nil {
				d.mu.Unlock()
				return
			}
			d.hp = append(d.hp, req.P1, req.P2, ext)
		default:
			res.P3 = uint32(0xFFFFFFFF) // -1
		}
		d.mu.Unlock()

		if err := binary.Write(conn, binary.LittleEndian, res); err != nil {
			return
		}
	}
}

func TestPigpio_ConfigureWriteRead(t *testing.T) {
	d, addr := startFakePigpiod(t)

	p, err := DialPigpio(addr)
	if err != nil {
		t.Fatalf("DialPigpio() error = %v", err)
	}
	defer p.Close()

	if err := p.Configure([]int{18, 20}, Output); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := p.Configure([]int{17}, Input); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if err := p.Write(18, High); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	level, err := p.Read(18)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if level != High {
		t.Errorf("Read(18) = %v, want High", level)
	}

	if err := p.Write(18, Low); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if level, _ := p.Read(18); level != Low {
		t.Errorf("Read(18) = %v, want Low", level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.modes[18] != 1 || d.modes[20] != 1 || d.modes[17] != 0 {
		t.Errorf("modes = %v, want 18,20 output and 17 input", d.modes)
	}
}

func TestPigpio_PWM(t *testing.T) {
	d, addr := startFakePigpiod(t)

	p, err := DialPigpio(addr)
	if err != nil {
		t.Fatalf("DialPigpio() error = %v", err)
	}
	defer p.Close()

	if err := p.PWM(18, 30000, 0.5); err != nil {
		t.Fatalf("PWM() error = %v", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.hp) != 3 || d.hp[0] != 18 || d.hp[1] != 30000 || d.hp[2] != 500000 {
		t.Errorf("hp request = %v, want [18 30000 500000]", d.hp)
	}
}

func TestPigpio_Closed(t *testing.T) {
	_, addr := startFakePigpiod(t)

	p, err := DialPigpio(addr)
	if err != nil {
		t.Fatalf("DialPigpio() error = %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Write(18, High); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after Close error = %v, want ErrClosed", err)
	}
}

func TestPigpio_InvalidPin(t *testing.T) {
	_, addr := startFakePigpiod(t)

	p, err := DialPigpio(addr)
	if err != nil {
		t.Fatalf("DialPigpio() error = %v", err)
	}
	defer p.Close()

	if _, err := p.Read(-1); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("Read(-1) error = %v, want ErrInvalidPin", err)
	}
}
