package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/proximity-agent/internal/constants"
	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/pkg/identity"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// StatsSource reports pipeline state for heartbeats.
type StatsSource interface {
	Stats() PipelineStats
}

// HostSampler reports device load for heartbeats.
type HostSampler interface {
	Sample() metrics.HostStats
}

// HeartbeatService manages periodic heartbeat messages.
type HeartbeatService struct {
	PubTopic   string
	Interval   time.Duration
	DeviceInfo identity.DeviceInfoInterface
	QOS        int
	MqttClient mqtt.MQTTClient
	Stats      StatsSource
	Host       HostSampler // optional
	Logger     zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatService initializes a new HeartbeatService. host may be nil.
func NewHeartbeatService(pubTopic string, interval time.Duration, qos int, deviceInfo identity.DeviceInfoInterface,
	mqttClient mqtt.MQTTClient, stats StatsSource, host HostSampler, logger zerolog.Logger) *HeartbeatService {

	return &HeartbeatService{
		PubTopic:   pubTopic,
		Interval:   interval,
		DeviceInfo: deviceInfo,
		QOS:        qos,
		MqttClient: mqttClient,
		Stats:      stats,
		Host:       host,
		Logger:     logger,
	}
}

// Start launches the heartbeat loop in a separate goroutine.
func (h *HeartbeatService) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx != nil {
		h.Logger.Warn().Msg("HeartbeatService is already running")
		return errors.New("heartbeat service is already running")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go func(ctx context.Context) {
		defer h.wg.Done()
		h.runHeartbeatLoop(ctx)
	}(h.ctx)

	h.Logger.Info().Str("topic", h.PubTopic).Msg("HeartbeatService started successfully")
	return nil
}

// Stop gracefully stops the heartbeat service.
func (h *HeartbeatService) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil {
		h.Logger.Warn().Msg("HeartbeatService is not running")
		return errors.New("heartbeat service is not running")
	}

	h.cancel()
	h.wg.Wait()

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HeartbeatService stopped successfully")
	return nil
}

// runHeartbeatLoop continuously sends heartbeat messages at the specified interval.
func (h *HeartbeatService) runHeartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.PublishHeartbeat(); err != nil {
				h.Logger.Error().Err(err).Msg("Failed to publish heartbeat message")
			} else {
				h.Logger.Debug().Msg("Heartbeat published successfully")
			}

		case <-ctx.Done():
			h.Logger.Info().Msg("HeartbeatService stopping gracefully")
			return
		}
	}
}

// PublishHeartbeat sends a single heartbeat carrying the current pipeline stats.
func (h *HeartbeatService) PublishHeartbeat() error {
	stats := h.Stats.Stats()
	heartbeatMessage := models.Heartbeat{
		DeviceID:       h.DeviceInfo.GetDeviceID(),
		Timestamp:      time.Now().UTC(),
		Status:         constants.StatusAlive,
		KnownReports:   stats.KnownReports,
		AlertedReports: stats.AlertedReports,
		HasPosition:    stats.HasPosition,
	}
	if h.Host != nil {
		host := h.Host.Sample()
		heartbeatMessage.CPUUsage = host.CPUPercent
		heartbeatMessage.MemoryUsage = host.MemoryPercent
		heartbeatMessage.ProcessRSSBytes = host.ProcessRSSBytes
	}

	payload, err := json.Marshal(heartbeatMessage)
	if err != nil {
		return err
	}

	token := h.MqttClient.Publish(h.PubTopic, byte(h.QOS), false, payload)
	token.Wait()
	return token.Error()
}
