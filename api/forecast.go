package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/campustransit/dispatch/core/fleet"
)

func (s *Server) queryZones(r *http.Request) []string {
	if raw := r.URL.Query().Get("zones"); raw != "" {
		zones := strings.Split(raw, ",")
		out := zones[:0]
		for _, z := range zones {
			if z = strings.TrimSpace(z); z != "" {
				out = append(out, z)
			}
		}
		return out
	}
	if len(s.zones) > 0 {
		return s.zones
	}
	return s.store.Zones()
}

func (s *Server) queryHorizon(r *http.Request) int {
	if raw := r.URL.Query().Get("hours_ahead"); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h >= 0 {
			return h
		}
	}
	return s.horizon
}

func (s *Server) forecastZones(w http.ResponseWriter, r *http.Request) {
	forecasts, err := s.forecaster.ForecastZones(r.Context(), s.queryZones(r), s.queryHorizon(r))
	if err != nil && len(forecasts) == 0 {
		s.writeError(w, err)
		return
	}
	if err != nil {
		s.log.Warnf("partial forecast: %v", err)
	}
	s.writeJSON(w, http.StatusOK, forecasts)
}

func (s *Server) allocateFleet(w http.ResponseWriter, r *http.Request) {
	vehicles, err := strconv.Atoi(r.URL.Query().Get("vehicles"))
	if err != nil || vehicles <= 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "vehicles must be a positive integer"})
		return
	}
	zones := s.queryZones(r)
	forecasts, err := s.forecaster.ForecastZones(r.Context(), zones, s.queryHorizon(r))
	if err != nil && len(forecasts) == 0 {
		s.writeError(w, err)
		return
	}
	allocations, err := fleet.Allocate(forecasts, vehicles)
	if errors.Is(err, fleet.ErrNoDemand) {
		// Zero total demand leaves the proportional split undefined;
		// the even split is the documented fallback.
		allocations = fleet.EvenSplit(zones, vehicles)
	} else if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, allocations)
}
