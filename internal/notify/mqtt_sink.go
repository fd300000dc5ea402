// Package notify delivers proximity notification requests.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
)

// MQTTSink publishes each request as JSON to "<topic>/<identifier>".
type MQTTSink struct {
	topic      string
	qos        int
	timeout    time.Duration
	mqttClient mqtt.MQTTClient
}

// NewMQTTSink creates a sink publishing under topic.
func NewMQTTSink(topic string, qos int, timeout time.Duration, mqttClient mqtt.MQTTClient) *MQTTSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MQTTSink{
		topic:      topic,
		qos:        qos,
		timeout:    timeout,
		mqttClient: mqttClient,
	}
}

// Emit publishes req and waits for the broker to acknowledge it.
func (s *MQTTSink) Emit(req models.NotificationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	topic := s.topic + "/" + req.Identifier
	token := s.mqttClient.Publish(topic, byte(s.qos), false, payload)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("publish to %s timed out after %s", topic, s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
