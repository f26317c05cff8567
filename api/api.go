// Package api exposes the dispatch, forecasting and reporting operations
// over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campustransit/dispatch/core/dispatch"
	"github.com/campustransit/dispatch/core/forecast"
	"github.com/campustransit/dispatch/core/logger"
	"github.com/campustransit/dispatch/core/registry"
)

// Server bundles the HTTP handlers of the service.
type Server struct {
	registry    *registry.Registry
	coordinator *dispatch.Coordinator
	forecaster  *forecast.Forecaster
	store       *forecast.SampleStore
	zones       []string
	horizon     int
	log         logger.Logger
}

// New creates a Server. zones and horizon are the forecast defaults used
// when a query omits them.
func New(reg *registry.Registry, coord *dispatch.Coordinator, fc *forecast.Forecaster, samples *forecast.SampleStore, zones []string, horizon int, log logger.Logger) *Server {
	if horizon <= 0 {
		horizon = 1
	}
	return &Server{
		registry:    reg,
		coordinator: coord,
		forecaster:  fc,
		store:       samples,
		zones:       zones,
		horizon:     horizon,
		log:         log,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rides", s.createRide)
	mux.HandleFunc("GET /api/rides", s.listRides)
	mux.HandleFunc("GET /api/rides/export", s.exportRides)
	mux.HandleFunc("GET /api/rides/{id}", s.getRide)
	mux.HandleFunc("POST /api/rides/{id}/assign", s.assignRide)
	mux.HandleFunc("POST /api/rides/{id}/dispatch", s.dispatchRide)
	mux.HandleFunc("POST /api/rides/{id}/start", s.startRide)
	mux.HandleFunc("POST /api/rides/{id}/complete", s.completeRide)
	mux.HandleFunc("POST /api/rides/{id}/cancel", s.cancelRide)
	mux.HandleFunc("GET /api/drivers", s.listDrivers)
	mux.HandleFunc("PUT /api/drivers/{id}", s.putDriver)
	mux.HandleFunc("POST /api/drivers/{id}/status", s.setDriverStatus)
	mux.HandleFunc("POST /api/drivers/{id}/location", s.updateDriverLocation)
	mux.HandleFunc("GET /api/forecast", s.forecastZones)
	mux.HandleFunc("GET /api/allocation", s.allocateFleet)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrConflict),
		errors.Is(err, registry.ErrInvalidTransition),
		errors.Is(err, registry.ErrDriverUnavailable),
		errors.Is(err, registry.ErrStaleLocation):
		status = http.StatusConflict
	case errors.Is(err, dispatch.ErrNoCandidates),
		errors.Is(err, forecast.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.Errorf("request failed: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
