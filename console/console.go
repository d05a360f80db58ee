// Package console exposes the command channel over a line-oriented serial
// port. Each line is a write request, except a line holding only "?",
// which is answered with the button report.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"github.com/gloworm-vision/lcdpanel/command"
)

const queryButton = "?"

// Open opens the serial port at device with the given baud rate.
func Open(device string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}

	return port, nil
}

type Console struct {
	Channel *command.Channel
	Logger  *logrus.Logger
}

// Serve handles requests from port until EOF or ctx is done. The port is
// closed when Serve returns.
func (c *Console) Serve(ctx context.Context, port io.ReadWriteCloser) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		port.Close()
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == queryButton {
			if _, err := port.Write(c.Channel.Read()); err != nil {
				return fmt.Errorf("unable to write button state: %w", err)
			}
			continue
		}

		c.Logger.WithField("line", line).Debug("console request")
		c.Channel.Write([]byte(line))
	}

	if ctx.Err() != nil {
		return nil
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("unable to read from console: %w", err)
	}

	return nil
}
