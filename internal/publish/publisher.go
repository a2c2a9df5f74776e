// Package publish provides an MQTT publisher for poll-mode readings.
package publish

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/metrics"
	"github.com/rs/zerolog"
)

// Config holds MQTT publisher configuration.
type Config struct {
	BrokerURL      string
	Topic          string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Stats tracks publisher counters.
type Stats struct {
	Published atomic.Uint64
	Failed    atomic.Uint64
}

// Publisher publishes readings to an MQTT broker. Reconnection is
// delegated to the paho client's auto-reconnect machinery.
type Publisher struct {
	config  Config
	client  pahomqtt.Client
	logger  zerolog.Logger
	metrics *metrics.Registry
	stats   *Stats
}

// NewPublisher creates a publisher; Connect must be called before use.
func NewPublisher(config Config, logger zerolog.Logger, metricsReg *metrics.Registry) (*Publisher, error) {
	if config.BrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("MQTT topic is required")
	}
	if config.ClientID == "" {
		config.ClientID = "modbuscli"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.PublishTimeout == 0 {
		config.PublishTimeout = 5 * time.Second
	}

	p := &Publisher{
		config:  config,
		logger:  logger.With().Str("component", "mqtt").Str("broker", config.BrokerURL).Logger(),
		metrics: metricsReg,
		stats:   &Stats{},
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID(config.ClientID).
		SetUsername(config.Username).
		SetPassword(config.Password).
		SetConnectTimeout(config.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(pahomqtt.Client) {
			p.logger.Info().Msg("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			p.logger.Warn().Err(err).Msg("MQTT connection lost")
		})

	p.client = pahomqtt.NewClient(opts)
	return p, nil
}

// Connect establishes the broker connection.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.config.ConnectTimeout) {
		return fmt.Errorf("MQTT connect timed out after %s", p.config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect failed: %w", err)
	}
	return nil
}

// Publish sends one reading to <topic>/<class>/<address> as compact JSON.
func (p *Publisher) Publish(ctx context.Context, reading *domain.Reading) error {
	payload, err := reading.ToJSON()
	if err != nil {
		return fmt.Errorf("encoding reading: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/%d", p.config.Topic, reading.Class, reading.Address)
	token := p.client.Publish(topic, p.config.QoS, false, payload)
	if !token.WaitTimeout(p.config.PublishTimeout) {
		p.recordFailure()
		return fmt.Errorf("MQTT publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		p.recordFailure()
		return fmt.Errorf("MQTT publish to %s failed: %w", topic, err)
	}

	p.stats.Published.Add(1)
	if p.metrics != nil {
		p.metrics.PointsPublished.Inc()
	}
	return nil
}

// PublishBatch publishes readings sequentially, returning the first error.
func (p *Publisher) PublishBatch(ctx context.Context, readings []*domain.Reading) error {
	for _, r := range readings {
		if err := p.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns publish counters.
func (p *Publisher) Stats() map[string]uint64 {
	return map[string]uint64{
		"published": p.stats.Published.Load(),
		"failed":    p.stats.Failed.Load(),
	}
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) recordFailure() {
	p.stats.Failed.Add(1)
	if p.metrics != nil {
		p.metrics.PublishFailures.Inc()
	}
}
