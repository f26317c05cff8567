package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/core/registry"
	"github.com/campustransit/dispatch/pkg/export"
)

func (s *Server) createRide(w http.ResponseWriter, r *http.Request) {
	var req registry.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	ride, err := s.registry.CreateRide(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) listRides(w http.ResponseWriter, r *http.Request) {
	var (
		rides []model.Ride
		err   error
	)
	q := r.URL.Query()
	switch {
	case q.Get("student_id") != "":
		rides, err = s.registry.StudentRides(r.Context(), q.Get("student_id"))
	case q.Get("driver_id") != "":
		rides, err = s.registry.DriverRides(r.Context(), q.Get("driver_id"))
	case q.Get("status") == string(model.StatusPending):
		rides, err = s.registry.PendingRides(r.Context())
	case q.Get("active") == "true":
		rides, err = s.registry.ActiveRides(r.Context())
	default:
		rides, err = s.registry.Rides(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rides)
}

func (s *Server) getRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.registry.Ride(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

type assignRequest struct {
	DriverID string `json:"driver_id"`
}

// assignRide performs a manual assignment with an admin-chosen driver.
func (s *Server) assignRide(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DriverID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "driver_id is required"})
		return
	}
	ride, err := s.coordinator.Assign(r.Context(), r.PathValue("id"), req.DriverID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

// dispatchRide lets the coordinator pick the driver.
func (s *Server) dispatchRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.coordinator.Dispatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) startRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.registry.Transition(r.Context(), r.PathValue("id"), model.StatusAccepted, model.StatusInProgress)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) completeRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.registry.Transition(r.Context(), r.PathValue("id"), model.StatusInProgress, model.StatusCompleted)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) cancelRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.registry.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

// exportRides streams the ride report as CSV.
func (s *Server) exportRides(w http.ResponseWriter, r *http.Request) {
	rides, err := s.registry.Rides(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=ride-reports-%s.csv", time.Now().Format("2006-01-02")))
	if err := export.WriteCSV(w, rides); err != nil {
		s.log.Errorf("write csv export: %v", err)
	}
}
