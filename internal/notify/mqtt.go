// Package notify publishes recognition outcomes to MQTT for home
// automation consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

var ErrNotConnected = errors.New("mqtt not connected")

type Config struct {
	Broker         string
	Topic          string
	ClientID       string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Message is the JSON payload published for every detection.
type Message struct {
	Category   string    `json:"category"`
	Name       string    `json:"name"`
	Known      bool      `json:"known"`
	Status     string    `json:"status,omitempty"`
	Faces      int       `json:"faces"`
	KnownNames []string  `json:"known_names"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher sends detections to "<topic>/<category>", e.g.
// homeguard/recognition/penghuni.
type Publisher struct {
	client mqtt.Client
	config Config
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

func NewPublisher(config Config, logger *slog.Logger) *Publisher {
	p := &Publisher{config: withDefaults(config), logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.config.Broker))
	opts.SetClientID(p.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		p.logger.Info("mqtt connection established",
			slog.String("broker", p.config.Broker),
			slog.String("client_id", p.config.ClientID),
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn("mqtt connection lost, will auto-reconnect",
			slog.String("broker", p.config.Broker),
			slog.Any("error", err),
		)
	}

	p.client = mqtt.NewClient(opts)
	return p
}

func withDefaults(config Config) Config {
	if config.Topic == "" {
		config.Topic = "homeguard/recognition"
	}
	config.Topic = strings.TrimRight(config.Topic, "/")
	if config.ClientID == "" {
		config.ClientID = "homeguard"
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 5 * time.Second
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 2 * time.Second
	}
	return config
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect dials the broker and waits at most ConnectTimeout or ctx.
func (p *Publisher) Connect(ctx context.Context) error {
	p.logger.Info("connecting to mqtt broker", slog.String("broker", p.config.Broker))

	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.config.ConnectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

// Publish sends one detection. Results without faces are ignored.
func (p *Publisher) Publish(result domain.RecognitionResult) error {
	if !result.Detected() {
		return nil
	}
	if !p.isConnected() {
		p.countError()
		return ErrNotConnected
	}

	msg := NewMessage(result, time.Now())
	payload, err := json.Marshal(msg)
	if err != nil {
		p.countError()
		return fmt.Errorf("marshal detection: %w", err)
	}

	topic := p.config.Topic + "/" + strings.ToLower(msg.Category)
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(p.config.PublishTimeout) {
		p.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()

	p.logger.Debug("detection published",
		slog.String("topic", topic),
		slog.Int("size", len(payload)),
	)
	return nil
}

// NewMessage builds the payload for result.
func NewMessage(result domain.RecognitionResult, at time.Time) Message {
	msg := Message{
		Category:   result.Label.Category(),
		Name:       result.Label.Name,
		Known:      result.Label.Known,
		Status:     result.Status,
		Faces:      len(result.Faces),
		KnownNames: []string{},
		Timestamp:  at,
	}
	for _, f := range result.Faces {
		if f.Known {
			msg.KnownNames = append(msg.KnownNames, f.DisplayName())
		}
	}
	return msg
}

func (p *Publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logger.Info("mqtt disconnected")
	}
	p.setConnected(false)
}

type Stats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

func (p *Publisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Stats{Connected: p.connected, Published: p.published, Errors: p.errors}
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Publisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *Publisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
