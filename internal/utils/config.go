package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benmeehan/proximity-agent/pkg/file"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/joho/godotenv"
)

// Environment variables that override secrets from the config file.
const (
	EnvMQTTUsername = "PROXIMITY_MQTT_USERNAME"
	EnvMQTTPassword = "PROXIMITY_MQTT_PASSWORD"
	EnvMapsAPIKey   = "PROXIMITY_MAPS_API_KEY"
)

// Location provider kinds.
const (
	ProviderStatic = "static"
	ProviderSensor = "sensor"
	ProviderGoogle = "google"
)

// Config represents the structure of the configuration file.
type Config struct {
	LogLevel  string `yaml:"log_level"`  // zerolog level name
	HostStats bool   `yaml:"host_stats"` // Sample CPU and memory for heartbeats and /metrics

	MQTT struct {
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // MQTT client ID prefix
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate, empty for plain TCP
		Username       string        `yaml:"username"`        // Broker username
		Password       string        `yaml:"password"`        // Broker password
		ConnectTimeout time.Duration `yaml:"connect_timeout"` // Timeout for the initial connection
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file"` // Path to the device identity file
	} `yaml:"identity"`

	Pipeline struct {
		AlertRadiusMeters       float64 `yaml:"alert_radius_meters"`       // Defaults to 8046.72 (5 mi)
		SuppressInitialSnapshot *bool   `yaml:"suppress_initial_snapshot"` // Skip notifications for the launch backlog
		EventBuffer             int     `yaml:"event_buffer"`              // Pending events before Submit blocks
	} `yaml:"pipeline"`

	Services struct {
		Feed struct {
			Enabled       bool   `yaml:"enabled"`        // Enable/disable the report feed subscription
			Topic         string `yaml:"topic"`          // Topic carrying full report snapshots
			ResetTopic    string `yaml:"reset_topic"`    // Topic that clears the alerted set
			SchemaVersion string `yaml:"schema_version"` // Semver constraint for snapshot payloads
			QOS           int    `yaml:"qos"`            // MQTT QoS level for feed messages
		} `yaml:"feed"`

		Location struct {
			Enabled           bool                `yaml:"enabled"`             // Enable/disable location service
			Provider          string              `yaml:"provider"`            // static, sensor or google
			Interval          time.Duration       `yaml:"interval"`            // Interval between location fixes
			MinDistanceMeters float64             `yaml:"min_distance_meters"` // Movement filter, 0 delivers every fix
			StaticPosition    location.Coordinate `yaml:"static_position"`     // Used by the static provider
			MapsAPIKey        string              `yaml:"maps_api_key"`        // Google maps API Key
			ModemIndex        int                 `yaml:"modem_index"`         // mmcli modem used for cell data
			GPSDeviceBaudRate int                 `yaml:"gps_baud_rate"`       // The Baud rate for GPS sensor
			GPSDevicePort     string              `yaml:"gps_device_port"`     // UNIX Port where the GPS sensor is mounted
		} `yaml:"location_service"`

		Notifications struct {
			Topic     string        `yaml:"topic"`      // Topic prefix for notification requests
			QOS       int           `yaml:"qos"`        // MQTT QoS level for notifications
			DryRun    bool          `yaml:"dry_run"`    // Log instead of publishing
			Workers   int           `yaml:"workers"`    // Delivery workers
			QueueSize int           `yaml:"queue_size"` // Pending deliveries before Emit blocks
			Timeout   time.Duration `yaml:"timeout"`    // Per-publish acknowledgement timeout
		} `yaml:"notifications"`

		Heartbeat struct {
			Topic    string        `yaml:"topic"`    // MQTT topic for heartbeat service
			Enabled  bool          `yaml:"enabled"`  // Enable/disable heartbeat service
			Interval time.Duration `yaml:"interval"` // Interval between heartbeats
			QOS      int           `yaml:"qos"`      // MQTT QoS level for heartbeat messages
		} `yaml:"heartbeat"`

		HTTP struct {
			Enabled      bool          `yaml:"enabled"`       // Enable/disable the HTTP surface
			Address      string        `yaml:"address"`       // Listen address
			CorsOrigins  []string      `yaml:"cors_origins"`  // Allowed CORS origins
			SubmitTopic  string        `yaml:"submit_topic"`  // Topic new reports are published to
			SubmitQOS    int           `yaml:"submit_qos"`    // MQTT QoS for submissions
			ReadTimeout  time.Duration `yaml:"read_timeout"`  // Server read timeout
			WriteTimeout time.Duration `yaml:"write_timeout"` // Server write timeout
		} `yaml:"http"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file, overlays
// secrets from the environment (and an optional .env file), and applies defaults.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	config.applyEnv()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvMQTTUsername); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv(EnvMapsAPIKey); v != "" {
		c.Services.Location.MapsAPIKey = v
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "proximity-agent"
	}
	if c.MQTT.ConnectTimeout == 0 {
		c.MQTT.ConnectTimeout = 30 * time.Second
	}
	if c.Identity.DeviceFile == "" {
		c.Identity.DeviceFile = "data/device.json"
	}
	if c.Pipeline.SuppressInitialSnapshot == nil {
		suppress := true
		c.Pipeline.SuppressInitialSnapshot = &suppress
	}
	if c.Pipeline.EventBuffer <= 0 {
		c.Pipeline.EventBuffer = 64
	}
	if c.Services.Feed.SchemaVersion == "" {
		c.Services.Feed.SchemaVersion = "^1.0.0"
	}
	if c.Services.Location.Provider == "" {
		c.Services.Location.Provider = ProviderStatic
	}
	if c.Services.Location.Interval == 0 {
		c.Services.Location.Interval = 30 * time.Second
	}
	if c.Services.Notifications.Workers <= 0 {
		c.Services.Notifications.Workers = 2
	}
	if c.Services.Notifications.QueueSize <= 0 {
		c.Services.Notifications.QueueSize = 32
	}
	if c.Services.Notifications.Timeout == 0 {
		c.Services.Notifications.Timeout = 10 * time.Second
	}
	if c.Services.Heartbeat.Interval == 0 {
		c.Services.Heartbeat.Interval = time.Minute
	}
	if c.Services.HTTP.Address == "" {
		c.Services.HTTP.Address = ":8080"
	}
	if c.Services.HTTP.ReadTimeout == 0 {
		c.Services.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.Services.HTTP.WriteTimeout == 0 {
		c.Services.HTTP.WriteTimeout = 10 * time.Second
	}
}

// Validate reports configuration that would prevent the agent from running.
func (c *Config) Validate() error {
	var errs []error

	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.Pipeline.AlertRadiusMeters < 0 {
		errs = append(errs, errors.New("pipeline.alert_radius_meters must not be negative"))
	}
	if c.Services.Feed.Enabled && c.Services.Feed.Topic == "" {
		errs = append(errs, errors.New("services.feed.topic is required"))
	}
	if !c.Services.Notifications.DryRun && c.Services.Notifications.Topic == "" {
		errs = append(errs, errors.New("services.notifications.topic is required unless dry_run is set"))
	}
	if c.Services.Heartbeat.Enabled && c.Services.Heartbeat.Topic == "" {
		errs = append(errs, errors.New("services.heartbeat.topic is required"))
	}

	loc := c.Services.Location
	if loc.Enabled {
		switch loc.Provider {
		case ProviderStatic:
		case ProviderSensor:
			if loc.GPSDevicePort == "" {
				errs = append(errs, errors.New("services.location_service.gps_device_port is required for the sensor provider"))
			}
		case ProviderGoogle:
			if loc.MapsAPIKey == "" {
				errs = append(errs, errors.New("services.location_service.maps_api_key is required for the google provider"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown location provider %q", loc.Provider))
		}
	}

	return errors.Join(errs...)
}
