package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/dronpoint-adapter/internal/config"
	"github.com/oshokin/dronpoint-adapter/internal/domain/event"
	"github.com/oshokin/dronpoint-adapter/internal/logger"
)

const (
	// qosAtMostOnce matches the fire-and-forget HTTP notification.
	qosAtMostOnce = 0
	// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
	disconnectQuiesce = 250
)

// mqttClient is the part of mqtt.Client the notifier uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// Alarm is the MQTT payload of one alarm onset.
type Alarm struct {
	// ID is the event id.
	ID int64 `json:"id"`
	// Class is the numeric event class.
	Class int `json:"class"`
	// ClassName is the class taxonomy name.
	ClassName string `json:"class_name"`
	// Latitude of the event, if known.
	Latitude *float64 `json:"lat,omitempty"`
	// Longitude of the event, if known.
	Longitude *float64 `json:"lon,omitempty"`
	// StartTime is the onset, Unix seconds.
	StartTime *float64 `json:"start_time,omitempty"`
}

// MQTT publishes alarms to a broker topic.
type MQTT struct {
	// client is the broker connection.
	client mqttClient
	// topic receives the payloads.
	topic string
	// timeout bounds one publish.
	timeout time.Duration
}

// DialMQTT connects to the broker from settings.
func DialMQTT(ctx context.Context, settings *config.Sink) (*MQTT, error) {
	if settings == nil {
		return nil, errSinkRequired
	}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultSinkTimeout
	}

	opts := mqtt.NewClientOptions().
		AddBroker(settings.MQTT.Broker).
		SetClientID(settings.MQTT.ClientID).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WarnKV(ctx, "MQTT connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := waitToken(connectCtx, client.Connect()); err != nil {
		client.Disconnect(0)

		return nil, fmt.Errorf("connect to broker %s: %w", settings.MQTT.Broker, err)
	}

	logger.InfoKV(ctx, "Connected to MQTT broker", "broker", settings.MQTT.Broker, "topic", settings.MQTT.Topic)

	return newMQTT(client, settings.MQTT.Topic, timeout), nil
}

func newMQTT(client mqttClient, topic string, timeout time.Duration) *MQTT {
	return &MQTT{
		client:  client,
		topic:   topic,
		timeout: timeout,
	}
}

// Notify publishes e as an Alarm payload.
func (m *MQTT) Notify(ctx context.Context, e *event.Event) error {
	payload, err := json.Marshal(&Alarm{
		ID:        e.ID,
		Class:     e.Class,
		ClassName: event.ClassName(e.Class),
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		StartTime: e.StartTime,
	})
	if err != nil {
		return fmt.Errorf("marshal alarm: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err = waitToken(ctx, m.client.Publish(m.topic, qosAtMostOnce, false, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}

	logger.DebugKV(ctx, "Notification published", "topic", m.topic, "id", e.ID)

	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(disconnectQuiesce)

	return nil
}

// waitToken waits for token completion or ctx expiry.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrSinkUnreachable, err)
		}

		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSinkUnreachable, ctx.Err())
	}
}
