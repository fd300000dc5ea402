package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/proximity-agent/internal/constants"
	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// FeedService subscribes to the report snapshot topic and forwards each
// decoded snapshot to the pipeline. A second topic resets the alerted set.
type FeedService struct {
	// Configuration fields
	topic      string
	resetTopic string
	qos        int
	constraint *semver.Constraints

	// Dependencies
	mqttClient mqtt.MQTTClient
	pipeline   EventSubmitter
	logger     zerolog.Logger

	// Internal state management
	mu      sync.Mutex
	running bool
}

// NewFeedService creates a FeedService. schemaConstraint is a semver
// constraint such as "^1.0.0" that incoming snapshots must satisfy.
func NewFeedService(topic, resetTopic string, qos int, schemaConstraint string,
	mqttClient mqtt.MQTTClient, pipeline EventSubmitter, logger zerolog.Logger) (*FeedService, error) {
	constraint, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return nil, fmt.Errorf("invalid schema version constraint %q: %w", schemaConstraint, err)
	}

	return &FeedService{
		topic:      topic,
		resetTopic: resetTopic,
		qos:        qos,
		constraint: constraint,
		mqttClient: mqttClient,
		pipeline:   pipeline,
		logger:     logger,
	}, nil
}

// Start subscribes to the feed and reset topics.
func (f *FeedService) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		f.logger.Warn().Msg("FeedService is already running")
		return errors.New("feed service is already running")
	}

	if err := f.subscribe(f.topic, f.HandleSnapshot); err != nil {
		return err
	}
	if f.resetTopic != "" {
		if err := f.subscribe(f.resetTopic, f.HandleReset); err != nil {
			_ = f.unsubscribe(f.topic)
			return err
		}
	}

	f.running = true
	f.logger.Info().
		Str("topic", f.topic).
		Str("reset_topic", f.resetTopic).
		Int("qos", f.qos).
		Msg("FeedService started")
	return nil
}

// Stop unsubscribes from every topic.
func (f *FeedService) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		f.logger.Warn().Msg("FeedService is not running")
		return errors.New("feed service is not running")
	}

	topics := []string{f.topic}
	if f.resetTopic != "" {
		topics = append(topics, f.resetTopic)
	}
	err := f.unsubscribe(topics...)

	f.running = false
	f.logger.Info().Msg("FeedService stopped")
	return err
}

func (f *FeedService) subscribe(topic string, handler MQTT.MessageHandler) error {
	token := f.mqttClient.Subscribe(topic, byte(f.qos), handler)
	token.Wait()
	if err := token.Error(); err != nil {
		f.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		return err
	}
	return nil
}

func (f *FeedService) unsubscribe(topics ...string) error {
	token := f.mqttClient.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		f.logger.Error().Err(err).Strs("topics", topics).Msg("Failed to unsubscribe from MQTT topics")
		return err
	}
	return nil
}

// HandleSnapshot decodes a snapshot message and submits it to the pipeline.
// Malformed or incompatible payloads are logged and dropped.
func (f *FeedService) HandleSnapshot(_ MQTT.Client, msg MQTT.Message) {
	snapshot, err := f.decodeSnapshot(msg.Payload())
	if err != nil {
		f.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Dropping report snapshot")
		return
	}

	if err := f.pipeline.Submit(SnapshotEvent(snapshot.Reports)); err != nil {
		f.logger.Error().Err(err).Msg("Failed to submit report snapshot")
		return
	}

	f.logger.Debug().
		Int("reports", len(snapshot.Reports)).
		Str("schema_version", snapshot.SchemaVersion).
		Msg("Report snapshot received")
}

// HandleReset clears the alerted set. The payload is ignored.
func (f *FeedService) HandleReset(_ MQTT.Client, msg MQTT.Message) {
	if err := f.pipeline.Submit(ClearEvent()); err != nil {
		f.logger.Error().Err(err).Msg("Failed to submit alert reset")
		return
	}
	f.logger.Info().Str("topic", msg.Topic()).Msg("Alert reset requested")
}

func (f *FeedService) decodeSnapshot(payload []byte) (models.SnapshotMessage, error) {
	var snapshot models.SnapshotMessage
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return snapshot, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	raw := snapshot.SchemaVersion
	if raw == "" {
		raw = constants.SnapshotSchemaVersion
	}
	version, err := semver.NewVersion(raw)
	if err != nil {
		return snapshot, fmt.Errorf("invalid schema version %q: %w", snapshot.SchemaVersion, err)
	}
	if !f.constraint.Check(version) {
		return snapshot, fmt.Errorf("unsupported schema version %s", version)
	}

	for i, r := range snapshot.Reports {
		if r.ID == "" {
			return snapshot, fmt.Errorf("report at index %d has no id", i)
		}
	}
	return snapshot, nil
}
