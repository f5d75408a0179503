package events

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

// MQTTConfig holds the configuration for the MQTT publisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // base topic, the organ is appended
	QoS      byte
	Retain   bool

	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// MQTTConfigFromSettings builds an MQTTConfig. The instance name is the
// client id fallback.
func MQTTConfigFromSettings(s *conf.Settings) MQTTConfig {
	clientID := s.Events.MQTT.ClientID
	if clientID == "" {
		clientID = s.Main.Name
	}
	return MQTTConfig{
		Broker:            s.Events.MQTT.Broker,
		ClientID:          clientID,
		Username:          s.Events.MQTT.Username,
		Password:          s.Events.MQTT.Password,
		Topic:             s.Events.MQTT.Topic,
		QoS:               byte(s.Events.MQTT.QoS), //nolint:gosec // validated to 0..2
		Retain:            s.Events.MQTT.Retain,
		ConnectTimeout:    30 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// mqttClient is the subset of the paho client the publisher uses.
type mqttClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events to <topic>/<organ>.
type MQTTPublisher struct {
	config  MQTTConfig
	mu      sync.Mutex
	client  mqttClient
	metrics *metrics.EventMetrics
	log     logger.Logger
}

// NewMQTTPublisher creates an unconnected publisher. m may be nil.
func NewMQTTPublisher(config MQTTConfig, m *metrics.EventMetrics) *MQTTPublisher {
	return &MQTTPublisher{
		config:  config,
		metrics: m,
		log:     GetLogger().With(logger.String("transport", TransportMQTT)),
	}
}

// Connect resolves the broker host and connects. paho reconnects on its
// own after the first successful connection.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	u, err := url.Parse(p.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	opts.SetUsername(p.config.Username)
	opts.SetPassword(p.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(p.config.ConnectTimeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.log.Info("connected to MQTT broker", logger.String("broker", p.config.Broker))
		p.metrics.SetConnected(TransportMQTT, true)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn("connection to MQTT broker lost",
			logger.String("broker", p.config.Broker),
			logger.Error(err))
		p.metrics.SetConnected(TransportMQTT, false)
	})

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect()); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return nil
}

// Topic returns the topic events for organ are published to.
func (p *MQTTPublisher) Topic(organ string) string {
	return strings.TrimSuffix(p.config.Topic, "/") + "/" + organ
}

// Publish sends the event as JSON.
func (p *MQTTPublisher) Publish(ctx context.Context, event DiagnosisEvent) error {
	started := time.Now()
	payload, err := event.Marshal()
	if err != nil {
		return publishError(err, TransportMQTT, event)
	}

	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if client == nil || !client.IsConnected() {
		err = fmt.Errorf("not connected to MQTT broker")
	} else {
		topic := p.Topic(event.Organ)
		p.log.Debug("publishing event", logger.String("topic", topic), logger.String("event_id", event.ID))
		err = waitToken(ctx, client.Publish(topic, p.config.QoS, p.config.Retain, payload))
	}

	p.metrics.ObservePublish(TransportMQTT, len(payload), started, err)
	if err != nil {
		return publishError(err, TransportMQTT, event)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(uint(p.config.DisconnectTimeout.Milliseconds())) //nolint:gosec // small positive value
		p.metrics.SetConnected(TransportMQTT, false)
	}
	p.client = nil
	return nil
}

// waitToken waits for a paho token or the context, whichever ends first.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
