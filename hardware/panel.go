package hardware

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/gloworm-vision/lcdpanel/hardware/gpio"
	"github.com/gloworm-vision/lcdpanel/hardware/lcd"
)

// RenderSettle is waited between initializing the display and writing text
// on every Render.
const RenderSettle = 500 * time.Millisecond

const (
	BackendMmap   = "mmap"
	BackendPigpio = "pigpio"
)

// Pins is the fixed wiring of the panel.
type Pins struct {
	LCD    lcd.Pins `json:"lcd" yaml:"lcd"`
	LED    int      `json:"led" yaml:"led"`
	Button int      `json:"button" yaml:"button"`
}

// DefaultPins is the wiring of the reference panel.
func DefaultPins() Pins {
	return Pins{
		LCD: lcd.Pins{
			RS:   21,
			RW:   26,
			E:    20,
			Data: [4]int{16, 19, 13, 12},
		},
		LED:    18,
		Button: 17,
	}
}

// outputs returns every pin that is driven by the panel.
func (p Pins) outputs() []int {
	return append(p.LCD.Lines(), p.LED)
}

type PanelConfig struct {
	// Backend is "mmap" (default) or "pigpio".
	Backend string `json:"backend" yaml:"backend"`

	// SoC selects the GPIO base for /dev/mem: "bcm2711" (default) or "bcm2837".
	SoC string         `json:"soc" yaml:"soc"`
	Map gpio.MapConfig `json:"map" yaml:"map"`

	PigpioAddr   string `json:"pigpioAddr" yaml:"pigpio_addr"`
	PWMFrequency int    `json:"pwmFrequency" yaml:"pwm_frequency"`

	// Pins overrides DefaultPins when set.
	Pins *Pins `json:"pins,omitempty" yaml:"pins"`

	// KeepInitialized skips reconfiguring and reinitializing the display on
	// every Render after the first one. Off by default.
	KeepInitialized bool `json:"keepInitialized" yaml:"keep_initialized"`
}

// Panel is an HD44780 display with a push button and an LED, all driven
// through one GPIO backend. All methods are serialized.
type Panel struct {
	mu sync.Mutex

	gpio         gpio.GPIO
	lcd          *lcd.Controller
	pins         Pins
	pwmFrequency int

	keepInitialized bool
	initialized     bool

	sleep func(time.Duration)
}

var (
	_ Hardware      = &Panel{}
	_ BinaryLight   = &Panel{}
	_ DimmableLight = &Panel{}
	_ Button        = &Panel{}
	_ TextDisplay   = &Panel{}
)

// NewPanel returns a Panel on top of an open GPIO backend. It doesn't touch
// the pins; call Setup before driving the LED.
func NewPanel(g gpio.GPIO, config PanelConfig) *Panel {
	pins := DefaultPins()
	if config.Pins != nil {
		pins = *config.Pins
	}

	p := &Panel{
		gpio:            g,
		pins:            pins,
		pwmFrequency:    config.PWMFrequency,
		keepInitialized: config.KeepInitialized,
		sleep:           time.Sleep,
	}
	p.lcd = &lcd.Controller{GPIO: g, Pins: pins.LCD, Sleep: p.doSleep}

	return p
}

// OpenPanel activates the configured GPIO backend and sets up the pins.
func OpenPanel(config PanelConfig) (*Panel, error) {
	g, err := openGPIO(config)
	if err != nil {
		return nil, err
	}

	p := NewPanel(g, config)
	if err := p.Setup(); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to set up pins: %w", err), g.Close())
	}

	return p, nil
}

func openGPIO(config PanelConfig) (gpio.GPIO, error) {
	switch config.Backend {
	case "", BackendMmap:
		mapConfig := config.Map
		if mapConfig.Base == 0 {
			soc := config.SoC
			if soc == "" {
				soc = "bcm2711"
			}

			base, ok := gpio.SoCBase(soc)
			if !ok {
				return nil, fmt.Errorf("unknown soc %q", soc)
			}
			mapConfig.Base = base
		}

		bank, err := gpio.Map(mapConfig)
		if err != nil {
			return nil, err
		}

		return bank, nil
	case BackendPigpio:
		pigpio, err := gpio.DialPigpio(config.PigpioAddr)
		if err != nil {
			return nil, err
		}

		return pigpio, nil
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", config.Backend)
	}
}

func (p *Panel) Name() string {
	return "hd44780-panel"
}

// Setup configures the pin directions and drives the display lines low.
func (p *Panel) Setup() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.configure()
}

func (p *Panel) configure() error {
	if err := p.gpio.Configure(p.pins.outputs(), gpio.Output); err != nil {
		return fmt.Errorf("can't configure outputs: %w", err)
	}

	if err := p.gpio.Configure([]int{p.pins.Button}, gpio.Input); err != nil {
		return fmt.Errorf("can't configure button input: %w", err)
	}

	for _, pin := range p.pins.LCD.Lines() {
		if err := p.gpio.Write(pin, gpio.Low); err != nil {
			return fmt.Errorf("can't clear pin %d: %w", pin, err)
		}
	}

	return nil
}

func (p *Panel) SetLED(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.gpio.Write(p.pins.LED, gpio.Level(on)); err != nil {
		return fmt.Errorf("can't set LED: %w", err)
	}

	return nil
}

func (p *Panel) SetLEDBrightness(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("brightness %v out of range 0-1", v)
	}

	pwm, ok := p.gpio.(gpio.PWM)
	if !ok {
		return Unsupported("gpio backend %T has no pwm", p.gpio)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := pwm.PWM(p.pins.LED, p.pwmFrequency, v); err != nil {
		return fmt.Errorf("can't set LED brightness: %w", err)
	}

	return nil
}

func (p *Panel) Pressed() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	level, err := p.gpio.Read(p.pins.Button)
	if err != nil {
		return false, fmt.Errorf("can't read button: %w", err)
	}

	return bool(level), nil
}

// Render shows text on the display. By default every call reconfigures the
// pins and reinitializes the display first, then waits RenderSettle.
func (p *Panel) Render(text []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.keepInitialized && p.initialized {
		if err := p.lcd.Clear(); err != nil {
			p.initialized = false
			return fmt.Errorf("can't clear display: %w", err)
		}
	} else {
		p.initialized = false

		if err := p.configure(); err != nil {
			return err
		}

		if err := p.lcd.Init(); err != nil {
			return err
		}

		p.doSleep(RenderSettle)
		p.initialized = true
	}

	if err := p.lcd.WriteText(text); err != nil {
		p.initialized = false
		return fmt.Errorf("can't write %q: %w", text, err)
	}

	return nil
}

func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if ledErr := p.gpio.Write(p.pins.LED, gpio.Low); ledErr != nil {
		err = multierr.Append(err, fmt.Errorf("unable to turn off LED: %w", ledErr))
	}

	return multierr.Append(err, p.gpio.Close())
}

func (p *Panel) doSleep(d time.Duration) {
	p.sleep(d)
}
