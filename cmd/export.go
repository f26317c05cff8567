package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campustransit/dispatch/config"
	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/pkg/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the ride report from a running service as CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost%s/api/rides", cfg.HTTP.Addr))
	if err != nil {
		return fmt.Errorf("fetch rides: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch rides: status %s", resp.Status)
	}
	var rides []model.Ride
	if err := json.NewDecoder(resp.Body).Decode(&rides); err != nil {
		return fmt.Errorf("decode rides: %w", err)
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	return export.WriteCSV(out, rides)
}
