package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/gloworm-vision/lcdpanel/command"
	"github.com/gloworm-vision/lcdpanel/hardware"
	"github.com/gloworm-vision/lcdpanel/store"
)

type Server struct {
	Addr string

	Store  store.Store
	Logger *logrus.Logger

	// Hardware is used when the store holds no hardware config.
	Hardware hardware.Config

	hardwareManager *hardwareManager
	channel         *command.Channel
}

// Run serves the http api until ctx is done. Init is called first if it
// hasn't been already.
func (s *Server) Run(ctx context.Context) error {
	if s.channel == nil {
		if err := s.Init(); err != nil {
			return fmt.Errorf("unable to initialize: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           s.routes(),
		ReadTimeout:       time.Second * 15,
		ReadHeaderTimeout: time.Second * 15,
		IdleTimeout:       time.Second * 30,
		MaxHeaderBytes:    4096,
	}

	listenErrs := make(chan error, 1)
	go func() {
		s.Logger.WithField("addr", s.Addr).Info("serving http")
		listenErrs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-listenErrs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}

// Init sets up the hardware from the stored config, falling back to
// s.Hardware, and builds the command channel. Missing or broken hardware is
// logged and the server runs without it.
func (s *Server) Init() error {
	s.hardwareManager = &hardwareManager{mu: new(sync.RWMutex)}

	config, err := s.Store.HardwareConfig()
	if errors.Is(err, store.ErrNotFound) {
		s.Logger.Infof("no hardware config stored, using defaults")
		config, err = s.Hardware, nil
	}

	if err == nil {
		hardware, err := hardware.New(config)
		if err == nil {
			s.hardwareManager.hardware = hardware
			s.Logger.WithField("hardware", hardware.Name()).Info("hardware ready")
		} else {
			s.Logger.Warnf("unable to setup new hardware: %s", err)
		}
	} else {
		s.Logger.Warnf("unable to load hardware config: %s", err)
	}

	s.channel = &command.Channel{
		Device:   managedDevice{manager: s.hardwareManager},
		Logger:   s.Logger,
		OnRender: s.recordDisplayText,
	}

	return nil
}

// Channel returns the command channel shared by every transport. It is nil
// until Init has run.
func (s *Server) Channel() *command.Channel {
	return s.channel
}

// Close releases the hardware.
func (s *Server) Close() error {
	if s.hardwareManager == nil {
		return nil
	}

	return s.hardwareManager.Close()
}

func (s *Server) routes() http.Handler {
	mux := httprouter.New()

	mux.HandlerFunc(http.MethodGet, "/driver", s.readDriver)
	mux.HandlerFunc(http.MethodPut, "/driver", s.writeDriver)
	mux.HandlerFunc(http.MethodPost, "/driver", s.writeDriver)

	mux.HandlerFunc(http.MethodGet, "/button", s.getButton)
	mux.HandlerFunc(http.MethodPut, "/led", s.putLED)
	mux.HandlerFunc(http.MethodPut, "/led/brightness", s.putLEDBrightness)
	mux.HandlerFunc(http.MethodGet, "/display", s.getDisplay)

	mux.HandlerFunc(http.MethodGet, "/hardware", s.getHardware)
	mux.HandlerFunc(http.MethodPut, "/hardware", s.putHardware)

	mux.HandlerFunc(http.MethodPost, "/rpc/updateHardware", s.updateHardware)

	return mux
}

func (s *Server) recordDisplayText(text []byte) {
	if err := s.Store.PutDisplayText(string(text)); err != nil {
		s.Logger.Warnf("unable to store display text: %s", err)
	}
}
