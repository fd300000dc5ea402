package service_registry_test

import (
	"errors"
	"testing"

	"github.com/benmeehan/proximity-agent/internal/constants"
	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/service_registry"
	"github.com/benmeehan/proximity-agent/internal/services"
	"github.com/benmeehan/proximity-agent/internal/utils"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/benmeehan/proximity-agent/tests/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	log      *[]string
	startErr error
}

func (s *recordingService) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	*s.log = append(*s.log, "start "+s.name)
	return nil
}

func (s *recordingService) Stop() error {
	*s.log = append(*s.log, "stop "+s.name)
	return nil
}

func newRegistry() *service_registry.ServiceRegistry {
	return service_registry.NewServiceRegistry(new(mocks.MockMQTTClient), metrics.New(), zerolog.Nop())
}

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	var log []string
	sr := newRegistry()
	sr.RegisterService("a", &recordingService{name: "a", log: &log})
	sr.RegisterService("b", &recordingService{name: "b", log: &log})
	sr.RegisterService("a", &recordingService{name: "duplicate", log: &log})

	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
	assert.Equal(t, []string{"a", "b"}, sr.Names())
}

func TestServiceRegistry_StartFailureRollsBack(t *testing.T) {
	var log []string
	sr := newRegistry()
	sr.RegisterService("a", &recordingService{name: "a", log: &log})
	sr.RegisterService("b", &recordingService{name: "b", log: &log})
	sr.RegisterService("c", &recordingService{name: "c", log: &log, startErr: errors.New("boom")})

	err := sr.StartServices()
	assert.EqualError(t, err, "failed to start c: boom")
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func baseConfig() *utils.Config {
	cfg := &utils.Config{}
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.Services.Notifications.DryRun = true
	cfg.ApplyDefaults()
	return cfg
}

func TestRegisterServices_PipelineOnly(t *testing.T) {
	sr := newRegistry()
	require.NoError(t, sr.RegisterServices(baseConfig(), new(mocks.DeviceInfoInterface)))

	assert.Equal(t, []string{constants.ServicePipeline}, sr.Names())
}

func TestRegisterServices_AllEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.Services.Notifications.DryRun = false
	cfg.Services.Notifications.Topic = "notifications"
	cfg.Services.Feed.Enabled = true
	cfg.Services.Feed.Topic = "reports/snapshot"
	cfg.Services.Location.Enabled = true
	cfg.Services.Location.StaticPosition = location.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	cfg.Services.Heartbeat.Enabled = true
	cfg.Services.Heartbeat.Topic = "agents/heartbeat"
	cfg.Services.HTTP.Enabled = true

	sr := newRegistry()
	require.NoError(t, sr.RegisterServices(cfg, new(mocks.DeviceInfoInterface)))

	assert.Equal(t, []string{
		constants.ServicePipeline,
		constants.ServiceFeed,
		constants.ServiceLocation,
		constants.ServiceHeartbeat,
		constants.ServiceHTTP,
	}, sr.Names())

	_, ok := sr.Service(constants.ServiceFeed)
	assert.True(t, ok)
}

func TestRegisterServices_HostStats(t *testing.T) {
	cfg := baseConfig()
	cfg.HostStats = true
	cfg.Services.Heartbeat.Enabled = true
	cfg.Services.Heartbeat.Topic = "agents/heartbeat"

	m := metrics.New()
	sr := service_registry.NewServiceRegistry(new(mocks.MockMQTTClient), m, zerolog.Nop())
	require.NoError(t, sr.RegisterServices(cfg, new(mocks.DeviceInfoInterface)))

	svc, ok := sr.Service(constants.ServiceHeartbeat)
	require.True(t, ok)
	assert.NotNil(t, svc.(*services.HeartbeatService).Host)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "proximity_agent_process_resident_bytes")
}

func TestRegisterServices_InvalidFeedConstraint(t *testing.T) {
	cfg := baseConfig()
	cfg.Services.Feed.Enabled = true
	cfg.Services.Feed.Topic = "reports/snapshot"
	cfg.Services.Feed.SchemaVersion = "not-a-constraint"

	sr := newRegistry()
	err := sr.RegisterServices(cfg, new(mocks.DeviceInfoInterface))
	assert.ErrorContains(t, err, "failed to initialize feed service")
}

func TestRegisterServices_UnknownProvider(t *testing.T) {
	cfg := baseConfig()
	cfg.Services.Location.Enabled = true
	cfg.Services.Location.Provider = "carrier-pigeon"

	sr := newRegistry()
	err := sr.RegisterServices(cfg, new(mocks.DeviceInfoInterface))
	assert.ErrorContains(t, err, "unknown location provider")
}
