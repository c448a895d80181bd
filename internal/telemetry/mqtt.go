// Package telemetry forwards session events to external systems.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/korefront/repcoach/internal/session"
)

// DefaultTopic is the topic pattern events are published to.
const DefaultTopic = "repcoach/sessions/{session_id}/events"

// MQTTConfig holds MQTT client configuration.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// Topic may contain a {session_id} placeholder.
	Topic string

	// PublishTimeout bounds how long Handle waits for the broker.
	PublishTimeout time.Duration
}

// DefaultMQTTConfig returns an MQTTConfig with sensible default values.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		ClientID:       "repcoach",
		Topic:          DefaultTopic,
		PublishTimeout: 5 * time.Second,
	}
}

// MQTTSink publishes session events as JSON. It implements session.Sink.
type MQTTSink struct {
	client mqtt.Client
	config MQTTConfig
}

// DialMQTT connects to the configured broker and returns a sink using it.
func DialMQTT(config MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("telemetry: MQTT connection established")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("telemetry: MQTT connection lost: %v", err)
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("telemetry: connected to MQTT broker %s", config.Broker)
	return NewMQTTSink(client, config), nil
}

// NewMQTTSink wraps an existing client.
func NewMQTTSink(client mqtt.Client, config MQTTConfig) *MQTTSink {
	def := DefaultMQTTConfig()
	if config.Topic == "" {
		config.Topic = def.Topic
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = def.PublishTimeout
	}
	return &MQTTSink{client: client, config: config}
}

// Name implements session.Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Handle publishes e with QoS 1.
func (s *MQTTSink) Handle(ctx context.Context, e session.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := formatTopic(s.config.Topic, e.SessionID)
	token := s.client.Publish(topic, 1, false, payload)

	timeout := s.config.PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
	log.Println("telemetry: MQTT disconnected")
}

func formatTopic(pattern, sessionID string) string {
	return strings.ReplaceAll(pattern, "{session_id}", sessionID)
}
