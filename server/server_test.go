package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/gloworm-vision/lcdpanel/hardware"
	"github.com/gloworm-vision/lcdpanel/hardware/gpio"
	"github.com/gloworm-vision/lcdpanel/hardware/gpio/gpiotest"
	"github.com/gloworm-vision/lcdpanel/store"
)

// newTestServer returns an initialized server backed by a temporary store.
// If fake is non-nil a panel on top of it is installed as the hardware.
func newTestServer(t *testing.T, fake *gpiotest.Fake) (*Server, http.Handler) {
	t.Helper()

	db, err := store.OpenBBolt(filepath.Join(t.TempDir(), "store.db"), 0600, nil)
	if err != nil {
		t.Fatalf("OpenBBolt() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	s := &Server{Store: db, Logger: logger}
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if fake != nil {
		s.hardwareManager.hardware = hardware.NewPanel(fake, hardware.PanelConfig{})
	}

	return s, s.routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestDriver_WriteRenders(t *testing.T) {
	fake := gpiotest.New()
	_, h := newTestServer(t, fake)

	rec := do(t, h, http.MethodPut, "/driver", "hello 5")
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /driver status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp writeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Written != len("hello 5") {
		t.Errorf("written = %d, want %d", resp.Written, len("hello 5"))
	}

	if len(fake.Writes()) == 0 {
		t.Error("no pin writes after a valid request")
	}

	rec = do(t, h, http.MethodGet, "/display", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /display status = %d, want %d", rec.Code, http.StatusOK)
	}

	var text string
	if err := json.NewDecoder(rec.Body).Decode(&text); err != nil {
		t.Fatalf("decoding display: %v", err)
	}
	if text != "hello" {
		t.Errorf("display = %q, want %q", text, "hello")
	}
}

func TestDriver_MalformedWrite(t *testing.T) {
	fake := gpiotest.New()
	_, h := newTestServer(t, fake)

	rec := do(t, h, http.MethodPost, "/driver", "a b c")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /driver status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp writeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Written != 5 {
		t.Errorf("written = %d, want 5", resp.Written)
	}

	if ops := fake.Ops(); len(ops) != 0 {
		t.Errorf("malformed request touched the hardware: %v", ops)
	}

	if rec := do(t, h, http.MethodGet, "/display", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /display status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDriver_WriteTruncatesCount(t *testing.T) {
	_, h := newTestServer(t, gpiotest.New())

	rec := do(t, h, http.MethodPut, "/driver", strings.Repeat("x", 100))

	var resp writeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Written != 32 {
		t.Errorf("written = %d, want 32", resp.Written)
	}
}

func TestDriver_Read(t *testing.T) {
	fake := gpiotest.New()
	_, h := newTestServer(t, fake)

	if got := do(t, h, http.MethodGet, "/driver", "").Body.String(); got != "Button: 0\n" {
		t.Errorf("GET /driver = %q, want %q", got, "Button: 0\n")
	}

	fake.SetLevel(hardware.DefaultPins().Button, gpio.High)

	if got := do(t, h, http.MethodGet, "/driver", "").Body.String(); got != "Button: 1\n" {
		t.Errorf("GET /driver = %q, want %q", got, "Button: 1\n")
	}

	rec := do(t, h, http.MethodGet, "/button", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "true" {
		t.Errorf("GET /button = %d %q, want 200 true", rec.Code, rec.Body.String())
	}
}

func TestNoHardware(t *testing.T) {
	_, h := newTestServer(t, nil)

	if got := do(t, h, http.MethodGet, "/driver", "").Body.String(); got != "Button: 0\n" {
		t.Errorf("GET /driver = %q, want %q", got, "Button: 0\n")
	}

	rec := do(t, h, http.MethodPut, "/driver", "hello 5")
	if rec.Code != http.StatusOK {
		t.Errorf("PUT /driver status = %d, want %d", rec.Code, http.StatusOK)
	}

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/button", ""},
		{http.MethodPut, "/led", "true"},
		{http.MethodPut, "/led/brightness", "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if rec := do(t, h, tt.method, tt.path, tt.body); rec.Code != http.StatusNotImplemented {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
			}
		})
	}
}

func TestLED(t *testing.T) {
	fake := gpiotest.New()
	_, h := newTestServer(t, fake)
	led := hardware.DefaultPins().LED

	if rec := do(t, h, http.MethodPut, "/led", "true"); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT /led status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if fake.Level(led) != gpio.High {
		t.Error("led is off after PUT /led true")
	}

	if rec := do(t, h, http.MethodPut, "/led", "false"); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT /led status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if fake.Level(led) != gpio.Low {
		t.Error("led is on after PUT /led false")
	}

	if rec := do(t, h, http.MethodPut, "/led", "nope"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("PUT /led with bad body status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestLEDBrightness(t *testing.T) {
	_, h := newTestServer(t, gpiotest.New())

	if rec := do(t, h, http.MethodPut, "/led/brightness", "1.5"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("out of range status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	// the fake has no pwm
	if rec := do(t, h, http.MethodPut, "/led/brightness", "0.5"); rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestHardwareConfig(t *testing.T) {
	s, h := newTestServer(t, gpiotest.New())

	if rec := do(t, h, http.MethodGet, "/hardware", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /hardware on empty store status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	if rec := do(t, h, http.MethodPost, "/rpc/updateHardware", ""); rec.Code != http.StatusNotFound {
		t.Errorf("update with no stored config status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// nothing listens on port 1, so activation fails
	body := `{"panel":{"backend":"pigpio","pigpioAddr":"127.0.0.1:1"}}`
	if rec := do(t, h, http.MethodPut, "/hardware", body); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT /hardware status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec := do(t, h, http.MethodGet, "/hardware", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /hardware status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got hardware.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding config: %v", err)
	}
	if got.Panel == nil || got.Panel.Backend != hardware.BackendPigpio || got.Panel.PigpioAddr != "127.0.0.1:1" {
		t.Errorf("GET /hardware = %+v, want the stored pigpio config", got.Panel)
	}

	if rec := do(t, h, http.MethodPost, "/rpc/updateHardware", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("update to unreachable pigpio status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestHardwareManager_UpdateDropsHardwareThatFailsToClose(t *testing.T) {
	fake := gpiotest.New()
	s, h := newTestServer(t, fake)

	fake.Err = errors.New("pigpiod gone")

	err := s.hardwareManager.Update(hardware.Config{})
	if !errors.Is(err, fake.Err) || !errors.Is(err, hardware.ErrNotConfigured) {
		t.Fatalf("Update() error = %v, want close and create errors", err)
	}
	if !fake.Closed() {
		t.Error("old hardware was not closed")
	}

	s.hardwareManager.View(func(h hardware.Hardware) {
		if h != nil {
			t.Errorf("hardware = %v after a failed update, want none", h.Name())
		}
	})

	// the dead panel is gone, so a second update only reports the new error
	err = s.hardwareManager.Update(hardware.Config{})
	if errors.Is(err, fake.Err) || !errors.Is(err, hardware.ErrNotConfigured) {
		t.Errorf("second Update() error = %v, want only ErrNotConfigured", err)
	}

	fake.Reset()
	do(t, h, http.MethodPut, "/driver", "hello 5")
	if ops := fake.Ops(); len(ops) != 0 {
		t.Errorf("render reached the dropped hardware: %v", ops)
	}
}
