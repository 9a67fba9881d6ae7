package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/radio-control/rfkd/internal/rfkill"
)

const apiV1 = "/api/v1"

// RegisterRoutes registers the /api/v1 endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(apiV1+"/health", s.handleHealth)
	mux.HandleFunc(apiV1+"/config", s.handleConfig)
	mux.HandleFunc(apiV1+"/killswitches", s.handleKillswitches)
	mux.HandleFunc(apiV1+"/killswitches/", s.handleKillswitchEndpoints)
	mux.HandleFunc(apiV1+"/devices", s.handleDevices)
	mux.HandleFunc(apiV1+"/devices/", s.handleDeviceEndpoints)
	mux.HandleFunc(apiV1+"/flight-mode", s.handleFlightMode)
	mux.HandleFunc(apiV1+"/telemetry", s.handleTelemetry)
}

// blockRequest is the body of the block endpoints.
type blockRequest struct {
	Blocked *bool `json:"blocked"`
}

// flightModeRequest is the body of POST /flight-mode.
type flightModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// decodeStrict decodes exactly one JSON object with no unknown fields.
func decodeStrict(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed JSON or unknown fields")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

// splitPath returns the id and the optional sub-resource after prefix.
func splitPath(path, prefix string) (id, sub string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, sub, _ = strings.Cut(rest, "/")
	return id, sub
}

// handleKillswitches handles GET /killswitches
func (s *Server) handleKillswitches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	list, err := s.killswitches.Killswitches(r.Context())
	if err != nil {
		WriteAPIError(w, err)
		return
	}
	WriteSuccess(w, list)
}

// handleKillswitchEndpoints routes /killswitches/{type} and
// /killswitches/{type}/block.
func (s *Server) handleKillswitchEndpoints(w http.ResponseWriter, r *http.Request) {
	name, sub := splitPath(r.URL.Path, apiV1+"/killswitches/")
	t, err := rfkill.ParseRadioType(name)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("Unknown radio type %q", name), nil)
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		info, err := s.killswitches.Killswitch(r.Context(), t)
		if err != nil {
			WriteAPIError(w, err)
			return
		}
		WriteSuccess(w, info)
	case "block":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		var req blockRequest
		if err := decodeStrict(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		if req.Blocked == nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "blocked is required", nil)
			return
		}
		if err := s.killswitches.SetBlock(r.Context(), t, *req.Blocked); err != nil {
			WriteAPIError(w, err)
			return
		}
		WriteSuccess(w, map[string]interface{}{"type": t.String(), "blocked": *req.Blocked})
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	}
}

// handleDevices handles GET /devices
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	list, err := s.killswitches.Devices(r.Context())
	if err != nil {
		WriteAPIError(w, err)
		return
	}
	WriteSuccess(w, list)
}

// handleDeviceEndpoints routes /devices/{index} and /devices/{index}/block.
func (s *Server) handleDeviceEndpoints(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, apiV1+"/devices/")
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("Invalid device index %q", id), nil)
		return
	}
	index := uint32(n)

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		info, err := s.killswitches.Device(r.Context(), index)
		if err != nil {
			WriteAPIError(w, err)
			return
		}
		WriteSuccess(w, info)
	case "block":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		var req blockRequest
		if err := decodeStrict(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		if req.Blocked == nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "blocked is required", nil)
			return
		}
		if err := s.killswitches.SetBlockIndex(r.Context(), index, *req.Blocked); err != nil {
			WriteAPIError(w, err)
			return
		}
		WriteSuccess(w, map[string]interface{}{"index": index, "blocked": *req.Blocked})
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	}
}

// handleFlightMode handles GET/POST /flight-mode
func (s *Server) handleFlightMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status, err := s.killswitches.FlightModeStatus(r.Context())
		if err != nil {
			WriteAPIError(w, err)
			return
		}
		WriteSuccess(w, status)
	case http.MethodPost:
		var req flightModeRequest
		if err := decodeStrict(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		if req.Enabled == nil {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "enabled is required", nil)
			return
		}
		if err := s.killswitches.FlightMode(r.Context(), *req.Enabled); err != nil {
			WriteAPIError(w, err)
			return
		}
		WriteSuccess(w, map[string]bool{"enabled": *req.Enabled})
	default:
		writeMethodNotAllowed(w, "GET, POST")
	}
}

// handleConfig handles GET /config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	WriteSuccess(w, map[string]bool{
		"forceSync":        s.settings.ForceSync,
		"persist":          s.settings.Persist,
		"strictFlightMode": s.settings.StrictFlightMode,
		"keyControl":       s.settings.KeyControl,
		"masterKey":        s.settings.MasterKey,
	})
}

// handleTelemetry handles GET /telemetry (SSE)
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Telemetry service not available", nil)
		return
	}
	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to subscribe to telemetry stream", nil)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	subsystems := map[string]bool{
		"arbitrator": s.killswitches != nil,
		"telemetry":  s.telemetryHub != nil,
	}
	if s.killswitches != nil {
		_, err := s.killswitches.FlightModeStatus(r.Context())
		subsystems["arbitrator"] = err == nil
	}

	health := map[string]interface{}{
		"status":     "ok",
		"uptimeSec":  time.Since(s.startTime).Seconds(),
		"subsystems": subsystems,
	}
	if !subsystems["arbitrator"] || !subsystems["telemetry"] {
		health["status"] = "degraded"
		WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
			"One or more subsystems are unavailable", health)
		return
	}
	WriteSuccess(w, health)
}
