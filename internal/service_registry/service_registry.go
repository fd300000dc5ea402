package service_registry

import (
	"errors"
	"fmt"
	"io"

	"github.com/benmeehan/proximity-agent/internal/constants"
	"github.com/benmeehan/proximity-agent/internal/feed"
	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/notify"
	"github.com/benmeehan/proximity-agent/internal/proximity"
	"github.com/benmeehan/proximity-agent/internal/server"
	"github.com/benmeehan/proximity-agent/internal/services"
	"github.com/benmeehan/proximity-agent/internal/utils"
	"github.com/benmeehan/proximity-agent/pkg/identity"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Service is the interface for all plug-in services
type Service interface {
	Start() error
	Stop() error
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	closers     []io.Closer        // Released after every service has stopped
	mqttClient  mqtt.MQTTClient
	metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, m *metrics.Metrics, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]Service),
		mqttClient: mqttClient,
		metrics:    m,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns a registered service by name.
func (sr *ServiceRegistry) Service(name string) (Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// Names returns the registered service names in registration order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order, then releases shared
// resources such as the notification workers.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	for _, c := range sr.closers {
		if err := c.Close(); err != nil {
			stopErrors = append(stopErrors, err)
		}
	}
	sr.closers = nil

	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds the pipeline and every enabled service around it.
// Registration order is start order: the pipeline first so that sources never
// submit to a stopped loop, and the HTTP surface last.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deviceInfo identity.DeviceInfoInterface) error {
	sink := sr.buildSink(config)

	var opts []proximity.Option
	if config.Pipeline.AlertRadiusMeters > 0 {
		opts = append(opts, proximity.WithRadius(config.Pipeline.AlertRadiusMeters))
	}
	notifier := proximity.NewNotifier(sink, sr.Logger.With().Str("component", "notifier").Logger(), opts...)

	pipeline := services.NewPipelineService(
		feed.NewReportFeed(),
		notifier,
		*config.Pipeline.SuppressInitialSnapshot,
		config.Pipeline.EventBuffer,
		sr.Logger.With().Str("service", constants.ServicePipeline).Logger(),
		sr.metrics,
	)
	sr.RegisterService(constants.ServicePipeline, pipeline)

	var host services.HostSampler
	if config.HostStats {
		collector := metrics.NewHostCollector(sr.Logger.With().Str("component", "host").Logger())
		if err := sr.metrics.RegisterHost(collector); err != nil {
			return fmt.Errorf("failed to register host metrics: %w", err)
		}
		host = collector
	}

	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    constants.ServiceFeed,
			enabled: config.Services.Feed.Enabled,
			constructor: func() (Service, error) {
				return services.NewFeedService(
					config.Services.Feed.Topic,
					config.Services.Feed.ResetTopic,
					config.Services.Feed.QOS,
					config.Services.Feed.SchemaVersion,
					sr.mqttClient,
					pipeline,
					sr.Logger.With().Str("service", constants.ServiceFeed).Logger(),
				)
			},
		},
		{
			name:    constants.ServiceLocation,
			enabled: config.Services.Location.Enabled,
			constructor: func() (Service, error) {
				provider, err := buildLocationProvider(config)
				if err != nil {
					return nil, err
				}
				return services.NewLocationService(
					config.Services.Location.Interval,
					config.Services.Location.MinDistanceMeters,
					pipeline,
					provider,
					sr.Logger.With().Str("service", constants.ServiceLocation).Logger(),
					sr.metrics,
				), nil
			},
		},
		{
			name:    constants.ServiceHeartbeat,
			enabled: config.Services.Heartbeat.Enabled,
			constructor: func() (Service, error) {
				return services.NewHeartbeatService(
					config.Services.Heartbeat.Topic,
					config.Services.Heartbeat.Interval,
					config.Services.Heartbeat.QOS,
					deviceInfo,
					sr.mqttClient,
					pipeline,
					host,
					sr.Logger.With().Str("service", constants.ServiceHeartbeat).Logger(),
				), nil
			},
		},
		{
			name:    constants.ServiceHTTP,
			enabled: config.Services.HTTP.Enabled,
			constructor: func() (Service, error) {
				return server.NewServer(
					server.Options{
						Address:      config.Services.HTTP.Address,
						CorsOrigins:  config.Services.HTTP.CorsOrigins,
						SubmitTopic:  config.Services.HTTP.SubmitTopic,
						SubmitQOS:    config.Services.HTTP.SubmitQOS,
						ReadTimeout:  config.Services.HTTP.ReadTimeout,
						WriteTimeout: config.Services.HTTP.WriteTimeout,
					},
					pipeline,
					sr.mqttClient,
					sr.metrics.Handler(),
					sr.Logger.With().Str("service", constants.ServiceHTTP).Logger(),
				), nil
			},
		},
	}

	for _, s := range servicesInOrder {
		if !s.enabled {
			sr.Logger.Debug().Str("service", s.name).Msg("Service is disabled, skipping")
			continue
		}
		svc, err := s.constructor()
		if err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to initialize %s service", s.name)
			return fmt.Errorf("failed to initialize %s service: %w", s.name, err)
		}
		sr.RegisterService(s.name, svc)
	}

	return nil
}

// buildSink picks the notification sink. Publishing goes through a worker
// pool so a slow broker never stalls the pipeline.
func (sr *ServiceRegistry) buildSink(config *utils.Config) proximity.Sink {
	n := config.Services.Notifications
	logger := sr.Logger.With().Str("component", "notifications").Logger()

	if n.DryRun {
		logger.Warn().Msg("Notifications are in dry-run mode and will only be logged")
		return notify.NewLogSink(logger)
	}

	async := notify.NewAsyncSink(
		notify.NewMQTTSink(n.Topic, n.QOS, n.Timeout, sr.mqttClient),
		n.Workers,
		n.QueueSize,
		logger,
		sr.metrics,
	)
	sr.closers = append(sr.closers, async)
	return async
}

func buildLocationProvider(config *utils.Config) (location.Provider, error) {
	loc := config.Services.Location
	switch loc.Provider {
	case utils.ProviderStatic:
		return location.NewStaticProvider(loc.StaticPosition), nil
	case utils.ProviderSensor:
		return location.NewDeviceSensorProvider(loc.GPSDevicePort, loc.GPSDeviceBaudRate), nil
	case utils.ProviderGoogle:
		return location.NewGoogleGeolocationProvider(loc.MapsAPIKey, loc.ModemIndex)
	default:
		return nil, fmt.Errorf("unknown location provider %q", loc.Provider)
	}
}
