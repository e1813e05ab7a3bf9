// Package notify pushes completion events to companion apps over MQTT.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/model"
)

// Publisher sends prayer completion events to per-user topics.
type Publisher struct {
	client mqtt.Client
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Error().Err(err).Msg("MQTT connection lost")
}

// NewPublisher connects to the broker. brokerURL is like "tcp://host:1883".
func NewPublisher(brokerURL, clientID string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}
	return &Publisher{client: client}, nil
}

type completionEvent struct {
	UserID     int    `json:"user_id"`
	PrayerType string `json:"prayer_type"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}

// PublishCompletion sends a completion event on salahtrack/users/{id}/prayers.
// Delivery is best-effort; a publish failure is logged, never propagated.
func (p *Publisher) PublishCompletion(userID int, prayerType model.PrayerType, status model.CompletionStatus) {
	payload, err := json.Marshal(completionEvent{
		UserID:     userID,
		PrayerType: string(prayerType),
		Status:     string(status),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode completion event")
		return
	}

	topic := fmt.Sprintf("salahtrack/users/%d/prayers", userID)
	token := p.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", topic).Msg("failed to publish completion event")
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
