package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/service_registry"
	"github.com/benmeehan/proximity-agent/internal/utils"
	"github.com/benmeehan/proximity-agent/pkg/file"
	"github.com/benmeehan/proximity-agent/pkg/identity"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration file")
	flag.Parse()

	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		logger.Warn().Str("log_level", config.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	// Initialize DeviceInfo
	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device information")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().
		Str("client_id", config.MQTT.ClientID).
		Str("device_id", deviceInfo.GetDeviceID()).
		Msg("Starting proximity agent")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient, logger.With().Str("component", "mqtt").Logger())
	err = mqttClient.Initialize(mqtt.ConnectionOptions{
		Broker:         config.MQTT.Broker,
		ClientID:       config.MQTT.ClientID,
		CACertificate:  config.MQTT.CACertificate,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		ConnectTimeout: config.MQTT.ConnectTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, metrics.New(), logger)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config, deviceInfo); err != nil {
		mqttClient.Disconnect(250)
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		mqttClient.Disconnect(250)
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Some services failed to stop cleanly")
	}
	mqttClient.Disconnect(250)
}
