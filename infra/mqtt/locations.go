// Package mqtt ingests driver position reports published by vehicle
// terminals. Each driver publishes JSON payloads on its own topic; the
// consumer validates them and applies the registry's monotonic location
// write, so out-of-order deliveries are discarded rather than applied.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/core/registry"
	"github.com/campustransit/dispatch/infra/logger"
	"github.com/campustransit/dispatch/pkg/retry"
)

// Config defines the connection parameters for the location consumer.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Topic is the subscription filter. The driver ID is the third
	// segment: campus/driver/<id>/location.
	Topic string `json:"topic"`
	QoS   byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "campus-dispatch"
	}
	if c.Topic == "" {
		c.Topic = "campus/driver/+/location"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	return nil
}

// locationPayload is the wire format of one position report.
type locationPayload struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
	SpeedKmh  float64   `json:"speed_kmh,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
}

// ParseLocation decodes a position report payload.
func ParseLocation(payload []byte) (model.Location, error) {
	var p locationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.Location{}, fmt.Errorf("mqtt: decode location: %w", err)
	}
	if p.Timestamp.IsZero() {
		return model.Location{}, fmt.Errorf("mqtt: location without timestamp")
	}
	return model.Location{
		Lat:       p.Lat,
		Lng:       p.Lng,
		Timestamp: p.Timestamp,
		SpeedKmh:  p.SpeedKmh,
		Heading:   p.Heading,
	}, nil
}

// DriverIDFromTopic extracts the driver ID from a location topic.
func DriverIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[2] == "" {
		return "", fmt.Errorf("mqtt: malformed location topic %q", topic)
	}
	return parts[2], nil
}

// LocationConsumer subscribes to driver location topics and feeds the
// registry.
type LocationConsumer struct {
	cli paho.Client
	cfg Config
	reg *registry.Registry
	log logger.Logger
}

// NewLocationConsumer connects to the broker and subscribes. Connection
// attempts follow the given retry policy.
func NewLocationConsumer(ctx context.Context, cfg Config, reg *registry.Registry, policy retry.Policy) (*LocationConsumer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("mqtt: nil registry")
	}
	c := &LocationConsumer{
		cfg: cfg,
		reg: reg,
		log: logger.New("mqtt-locations"),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true)
	c.cli = paho.NewClient(opts)

	err := retry.Do(ctx, policy, func() error {
		tok := c.cli.Connect()
		tok.Wait()
		return tok.Error()
	})
	if err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Broker, err)
	}
	if tok := c.cli.Subscribe(cfg.Topic, cfg.QoS, c.handle); tok.Wait() && tok.Error() != nil {
		c.cli.Disconnect(250)
		return nil, fmt.Errorf("mqtt: subscribe %s: %w", cfg.Topic, tok.Error())
	}
	c.log.Infof("consuming driver locations from %s on %s", cfg.Topic, cfg.Broker)
	return c, nil
}

func (c *LocationConsumer) handle(_ paho.Client, msg paho.Message) {
	driverID, err := DriverIDFromTopic(msg.Topic())
	if err != nil {
		c.log.Warnf("%v", err)
		return
	}
	loc, err := ParseLocation(msg.Payload())
	if err != nil {
		c.log.Warnf("driver %s: %v", driverID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.reg.UpdateDriverLocation(ctx, driverID, loc); err != nil {
		// Stale reports are the expected resolution of out-of-order delivery.
		if errors.Is(err, registry.ErrStaleLocation) {
			c.log.Debugf("driver %s location dropped: %v", driverID, err)
		} else if ctx.Err() == nil {
			c.log.Warnf("driver %s location update: %v", driverID, err)
		}
	}
}

// Close detaches from the broker.
func (c *LocationConsumer) Close() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
