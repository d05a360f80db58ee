package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gloworm-vision/lcdpanel/hardware"
	"github.com/gloworm-vision/lcdpanel/store"
)

// maxDriverBody bounds how much of a driver write is read. Only the first
// command.MaxWriteSize bytes are ever looked at.
const maxDriverBody = 4096

func (s *Server) readDriver(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(s.channel.Read())
}

func (s *Server) writeDriver(res http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxDriverBody))
	if err != nil {
		respond(res, err, http.StatusBadRequest)
		return
	}

	n := s.channel.Write(body)

	respond(res, writeResponse{Written: n}, http.StatusOK)
}

func (s *Server) getButton(res http.ResponseWriter, req *http.Request) {
	pressed, err := managedDevice{manager: s.hardwareManager}.Pressed()
	if err != nil {
		respond(res, err, hardwareStatus(err))
		return
	}

	respond(res, pressed, http.StatusOK)
}

func (s *Server) putLED(res http.ResponseWriter, req *http.Request) {
	var on bool
	if err := json.NewDecoder(req.Body).Decode(&on); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	var err error
	s.hardwareManager.View(func(h hardware.Hardware) {
		light, ok := h.(hardware.BinaryLight)
		if !ok {
			err = hardware.Unsupported("hardware %s has no led", name(h))
			return
		}

		err = light.SetLED(on)
	})
	if err != nil {
		respond(res, err, hardwareStatus(err))
		return
	}

	respond(res, nil, http.StatusNoContent)
}

func (s *Server) putLEDBrightness(res http.ResponseWriter, req *http.Request) {
	var brightness float64
	if err := json.NewDecoder(req.Body).Decode(&brightness); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if brightness < 0 || brightness > 1 {
		respond(res, errors.New("brightness must be between 0 and 1"), http.StatusUnprocessableEntity)
		return
	}

	var err error
	s.hardwareManager.View(func(h hardware.Hardware) {
		light, ok := h.(hardware.DimmableLight)
		if !ok {
			err = hardware.Unsupported("hardware %s has no dimmable led", name(h))
			return
		}

		err = light.SetLEDBrightness(brightness)
	})
	if err != nil {
		respond(res, err, hardwareStatus(err))
		return
	}

	respond(res, nil, http.StatusNoContent)
}

func (s *Server) getDisplay(res http.ResponseWriter, req *http.Request) {
	text, err := s.Store.DisplayText()
	if err != nil {
		respond(res, err, storeStatus(err))
		return
	}

	respond(res, text, http.StatusOK)
}

func (s *Server) getHardware(res http.ResponseWriter, req *http.Request) {
	config, err := s.Store.HardwareConfig()
	if err != nil {
		respond(res, err, storeStatus(err))
		return
	}

	respond(res, config, http.StatusOK)
}

func (s *Server) putHardware(res http.ResponseWriter, req *http.Request) {
	var hardware hardware.Config
	if err := json.NewDecoder(req.Body).Decode(&hardware); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if err := s.Store.PutHardwareConfig(hardware); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, nil, http.StatusNoContent)
}

func (s *Server) updateHardware(res http.ResponseWriter, req *http.Request) {
	config, err := s.Store.HardwareConfig()
	if err != nil {
		respond(res, err, storeStatus(err))
		return
	}

	if err := s.hardwareManager.Update(config); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	s.Logger.Info("hardware updated")

	respond(res, nil, http.StatusOK)
}

func hardwareStatus(err error) int {
	if errors.Is(err, hardware.ErrUnsupported{}) {
		return http.StatusNotImplemented
	}

	return http.StatusInternalServerError
}

func storeStatus(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}
