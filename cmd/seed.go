package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campustransit/dispatch/config"
	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/core/registry"
)

var (
	seedDrivers int
	seedRides   int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a running service with demo drivers and ride requests",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedDrivers, "drivers", 4, "number of demo drivers")
	seedCmd.Flags().IntVar(&seedRides, "rides", 12, "number of demo ride requests")
	rootCmd.AddCommand(seedCmd)
}

// campusStops are demo pickup and drop-off points around a campus.
var campusStops = []struct {
	name   string
	coords model.Coordinates
}{
	{"Library", model.Coordinates{Lat: 12.9716, Lng: 77.5946}},
	{"Gym", model.Coordinates{Lat: 12.9752, Lng: 77.5901}},
	{"Dorm A", model.Coordinates{Lat: 12.9688, Lng: 77.5982}},
	{"Dorm B", model.Coordinates{Lat: 12.9671, Lng: 77.5923}},
	{"Main Gate", model.Coordinates{Lat: 12.9745, Lng: 77.6010}},
	{"Cafeteria", model.Coordinates{Lat: 12.9702, Lng: 77.5958}},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	base := fmt.Sprintf("http://localhost%s", cfg.HTTP.Addr)
	client := &http.Client{Timeout: 10 * time.Second}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < seedDrivers; i++ {
		id := fmt.Sprintf("driver-%02d", i+1)
		stop := campusStops[rng.Intn(len(campusStops))]
		d := model.Driver{
			Name:          fmt.Sprintf("Demo Driver %d", i+1),
			VehicleNumber: fmt.Sprintf("VAN-%03d", i+1),
			VehicleType:   model.VehicleVan,
			Capacity:      8,
			Status:        model.DriverActive,
		}
		if err := post(client, http.MethodPut, base+"/api/drivers/"+id, d); err != nil {
			return fmt.Errorf("seed driver %s: %w", id, err)
		}
		loc := model.Location{Lat: stop.coords.Lat, Lng: stop.coords.Lng, Timestamp: time.Now()}
		if err := post(client, http.MethodPost, base+"/api/drivers/"+id+"/location", loc); err != nil {
			return fmt.Errorf("seed driver %s location: %w", id, err)
		}
	}

	for i := 0; i < seedRides; i++ {
		pickup := campusStops[rng.Intn(len(campusStops))]
		dest := campusStops[rng.Intn(len(campusStops))]
		for dest.name == pickup.name {
			dest = campusStops[rng.Intn(len(campusStops))]
		}
		req := registry.RideRequest{
			StudentID:         fmt.Sprintf("student-%03d", rng.Intn(500)),
			StudentName:       fmt.Sprintf("Demo Student %d", i+1),
			Pickup:            pickup.name,
			PickupCoords:      pickup.coords,
			Destination:       dest.name,
			DestinationCoords: dest.coords,
			Type:              model.RideOnDemand,
		}
		if err := post(client, http.MethodPost, base+"/api/rides", req); err != nil {
			return fmt.Errorf("seed ride %d: %w", i+1, err)
		}
	}

	fmt.Printf("seeded %d drivers and %d rides at %s\n", seedDrivers, seedRides, base)
	return nil
}

func post(client *http.Client, method, url string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}
