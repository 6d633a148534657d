package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	api "github.com/monorkin/awair-local/awair/api"
)

const (
	PUBLISH_TIMEOUT    = 5 * time.Second
	DISCONNECT_QUIESCE = 250
)

// tokenPublisher is the part of mqtt.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Options struct {
	Broker   string
	ClientID string
	// Topic is the prefix; readings go to <Topic>/<device>.
	Topic    string
	QoS      byte
	Retained bool
}

// Publisher sends readings as JSON documents to an MQTT broker.
type Publisher struct {
	client  tokenPublisher
	options Options
	logger  *slog.Logger
	close   func()
}

// Message is the payload published for every reading.
type Message struct {
	Device  string       `json:"device"`
	Reading *api.Reading `json:"reading"`
}

// Connect dials the broker and returns a publisher bound to it.
func Connect(options Options, logger *slog.Logger) (*Publisher, error) {
	clientOptions := mqtt.NewClientOptions()
	clientOptions.AddBroker(options.Broker)
	clientOptions.SetClientID(options.ClientID)
	clientOptions.SetAutoReconnect(true)
	clientOptions.SetConnectTimeout(PUBLISH_TIMEOUT)

	client := mqtt.NewClient(clientOptions)

	token := client.Connect()
	if !token.WaitTimeout(PUBLISH_TIMEOUT) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", options.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", options.Broker, err)
	}

	publisher := newPublisher(client, options, logger)
	publisher.close = func() { client.Disconnect(DISCONNECT_QUIESCE) }

	return publisher, nil
}

func newPublisher(client tokenPublisher, options Options, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		options: options,
		logger:  logger,
	}
}

// TopicFor returns the topic readings of device are published to.
func (publisher *Publisher) TopicFor(device string) string {
	// MQTT reserves these characters in topic levels.
	level := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(device)
	return strings.TrimSuffix(publisher.options.Topic, "/") + "/" + level
}

func (publisher *Publisher) Publish(device string, reading *api.Reading) error {
	payload, err := json.Marshal(Message{Device: device, Reading: reading})
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	topic := publisher.TopicFor(device)

	token := publisher.client.Publish(topic, publisher.options.QoS, publisher.options.Retained, payload)
	if !token.WaitTimeout(PUBLISH_TIMEOUT) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	if publisher.logger != nil {
		publisher.logger.Debug("Reading published", "topic", topic, "bytes", len(payload))
	}

	return nil
}

func (publisher *Publisher) Close() {
	if publisher.close != nil {
		publisher.close()
	}
}
