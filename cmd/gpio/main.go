package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gloworm-vision/lcdpanel/hardware"
)

// gpio is a bring-up tool: it renders a line of text, blinks the LED and
// logs the button state until killed.
func main() {
	backend := flag.String("backend", hardware.BackendMmap, "gpio backend, mmap or pigpio")
	soc := flag.String("soc", "bcm2711", "soc for the mmap backend, bcm2711 or bcm2837")
	pigpioAddr := flag.String("pigpio", "localhost:8888", "pigpiod address for the pigpio backend")
	text := flag.String("text", "hello", "text to render")
	flag.Parse()

	logger := logrus.New()

	config := hardware.Config{
		Panel: &hardware.PanelConfig{
			Backend:      *backend,
			SoC:          *soc,
			PigpioAddr:   *pigpioAddr,
			PWMFrequency: 30000,
		},
	}

	panel, err := hardware.New(config)
	if err != nil {
		panic(err)
	}
	defer panel.Close()

	if err := panel.(hardware.TextDisplay).Render([]byte(*text)); err != nil {
		panic(err)
	}
	logger.WithField("text", *text).Info("rendered")

	on := false
	for {
		on = !on
		if err := panel.(hardware.BinaryLight).SetLED(on); err != nil {
			logger.Warnf("unable to set led: %s", err)
		}

		pressed, err := panel.(hardware.Button).Pressed()
		if err != nil {
			logger.Warnf("unable to read button: %s", err)
		} else {
			logger.WithFields(logrus.Fields{"led": on, "button": pressed}).Info("tick")
		}

		time.Sleep(time.Millisecond * 500)
	}
}
