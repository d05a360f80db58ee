// Package command implements the panel's text command channel.
//
// A write carries "<text> <length>" and shows the first length bytes of text
// on the display. A read reports the button as "Button: 0\n" or
// "Button: 1\n". Malformed writes are logged and otherwise ignored: the
// channel has no way to report an error except the byte count. A text token
// longer than MaxTextLen is rejected rather than split into text and length.
package command

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// MaxWriteSize is the number of bytes of a write that are looked at.
	MaxWriteSize = 32

	// MaxTextLen is the longest text token, and the longest rendered text.
	MaxTextLen = 16

	// maxReadSize caps the read response.
	maxReadSize = 16
)

var (
	// ErrMalformedRequest is returned for writes that aren't "<text> <length>".
	ErrMalformedRequest = errors.New("malformed request")

	// ErrInvalidLength is returned when the length doesn't fit the text.
	ErrInvalidLength = fmt.Errorf("%w: invalid length", ErrMalformedRequest)
)

// Request is a decoded write.
type Request struct {
	Text   []byte
	Length int
}

// Line returns the bytes to render.
func (r Request) Line() []byte {
	return r.Text[:r.Length]
}

// ParseRequest decodes a raw write. Input past MaxWriteSize, or after a NUL,
// is ignored.
func ParseRequest(raw []byte) (Request, error) {
	if len(raw) > MaxWriteSize {
		raw = raw[:MaxWriteSize]
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	fields := bytes.Fields(raw)
	if len(fields) != 2 {
		return Request{}, fmt.Errorf("%w: want 2 fields, got %d", ErrMalformedRequest, len(fields))
	}

	text := fields[0]
	if len(text) > MaxTextLen {
		return Request{}, fmt.Errorf("%w: text is %d bytes, max %d", ErrMalformedRequest, len(text), MaxTextLen)
	}

	length, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return Request{}, fmt.Errorf("%w: bad length %q", ErrMalformedRequest, fields[1])
	}

	if length < 0 || length > len(text) || length > MaxTextLen {
		return Request{}, fmt.Errorf("%w: %d for %d byte text", ErrInvalidLength, length, len(text))
	}

	return Request{Text: append([]byte(nil), text...), Length: length}, nil
}

// FormatButton encodes the button state as a read response.
func FormatButton(pressed bool) []byte {
	state := 0
	if pressed {
		state = 1
	}

	resp := []byte(fmt.Sprintf("Button: %d\n", state))
	if len(resp) > maxReadSize {
		resp = resp[:maxReadSize]
	}

	return resp
}

// Device is what the channel drives.
type Device interface {
	Render(text []byte) error
	Pressed() (bool, error)
}

// Channel decodes writes into renders and reads into button reports.
// Requests are serialized, so a render always runs to completion before the
// next request starts.
type Channel struct {
	Device Device
	Logger *logrus.Logger

	// OnRender, if set, is called with the text after each successful render.
	OnRender func(text []byte)

	mu sync.Mutex
}

// Write handles one write request and returns the number of bytes consumed,
// min(len(p), MaxWriteSize). It never fails: bad requests and hardware
// errors are logged.
func (c *Channel) Write(p []byte) int {
	consumed := len(p)
	if consumed > MaxWriteSize {
		consumed = MaxWriteSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logger.WithField("data", string(p[:consumed])).Debug("write request")

	req, err := ParseRequest(p)
	if err != nil {
		c.Logger.WithError(err).Warn("ignoring write request")
		return consumed
	}

	if err := c.Device.Render(req.Line()); err != nil {
		c.Logger.WithError(err).WithField("text", string(req.Line())).Error("unable to render text")
		return consumed
	}

	if c.OnRender != nil {
		c.OnRender(req.Line())
	}

	return consumed
}

// Read returns the button report. A button that can't be read is logged and
// reported as released.
func (c *Channel) Read() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	pressed, err := c.Device.Pressed()
	if err != nil {
		c.Logger.WithError(err).Warn("unable to read button")
		pressed = false
	}

	return FormatButton(pressed)
}
