package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/campustransit/dispatch/core/model"
)

func (s *Server) listDrivers(w http.ResponseWriter, r *http.Request) {
	var (
		drivers []model.Driver
		err     error
	)
	if r.URL.Query().Get("available") == "true" {
		drivers, err = s.registry.AvailableDrivers(r.Context())
	} else {
		drivers, err = s.registry.Drivers(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, drivers)
}

func (s *Server) putDriver(w http.ResponseWriter, r *http.Request) {
	var d model.Driver
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode driver: %v", err)})
		return
	}
	d.ID = r.PathValue("id")
	if err := d.Validate(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.registry.PutDriver(r.Context(), d); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

type driverStatusRequest struct {
	Status model.DriverStatus `json:"status"`
}

func (s *Server) setDriverStatus(w http.ResponseWriter, r *http.Request) {
	var req driverStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	d, err := s.registry.SetDriverStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateDriverLocation(w http.ResponseWriter, r *http.Request) {
	var loc model.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil || loc.Timestamp.IsZero() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "location with timestamp is required"})
		return
	}
	d, err := s.registry.UpdateDriverLocation(r.Context(), r.PathValue("id"), loc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}
