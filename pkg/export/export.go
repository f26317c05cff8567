// Package export renders ride reports as tabular data.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/campustransit/dispatch/core/model"
)

// Headers is the column set of the ride report, matching the admin report
// download.
var Headers = []string{
	"Ride ID",
	"Student Name",
	"Student ID",
	"Pickup",
	"Destination",
	"Driver Name",
	"Vehicle Number",
	"Type",
	"Status",
	"Request Time",
	"Assigned Time",
	"Pickup Time",
	"Completed Time",
}

// WriteCSV writes the rides to w as a comma-separated table. Free-text
// fields are quoted by the csv writer as needed.
func WriteCSV(w io.Writer, rides []model.Ride) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, ride := range rides {
		var driverName, vehicleNumber string
		if ride.Driver != nil {
			driverName = ride.Driver.DriverName
			vehicleNumber = ride.Driver.VehicleNumber
		}
		rec := []string{
			ride.ID,
			ride.StudentName,
			ride.StudentID,
			ride.Pickup,
			ride.Destination,
			driverName,
			vehicleNumber,
			string(ride.Type),
			string(ride.Status),
			ride.RequestedAt.Format(time.RFC3339),
			formatTime(ride.AcceptedAt),
			formatTime(ride.StartedAt),
			formatTime(ride.CompletedAt),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rides to w in JSON format.
func WriteJSON(w io.Writer, rides []model.Ride) error {
	return json.NewEncoder(w).Encode(rides)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
