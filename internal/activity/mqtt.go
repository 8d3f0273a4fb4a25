package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/pkg/models"
)

// MQTTConfig configures the MQTT activity mirror.
type MQTTConfig struct {
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// publisher is the subset of mqtt.Client used by the mirror.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTMirror publishes stored activity entries as JSON to
// <topic_prefix>/<user_id>.
type MQTTMirror struct {
	client publisher
	prefix string
	qos    byte
	logger *zap.Logger
}

// Compile-time interface guard.
var _ Mirror = (*MQTTMirror)(nil)

// DialMQTT connects to the broker and returns a mirror publishing through it.
func DialMQTT(cfg MQTTConfig, logger *zap.Logger) (*MQTTMirror, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("mqtt: broker_url is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "devicedesk-activity"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", cfg.BrokerURL)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.BrokerURL, err)
	}
	logger.Info("mqtt activity mirror connected", zap.String("broker", cfg.BrokerURL))
	return newMQTTMirror(client, cfg.TopicPrefix, cfg.QoS, logger), nil
}

func newMQTTMirror(client publisher, prefix string, qos byte, logger *zap.Logger) *MQTTMirror {
	if prefix == "" {
		prefix = "devicedesk/activity"
	}
	return &MQTTMirror{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    qos,
		logger: logger,
	}
}

// Topic returns the topic entries of userID are published on.
func (m *MQTTMirror) Topic(userID string) string {
	// MQTT wildcards and separators are not allowed inside a topic level.
	level := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(userID)
	return m.prefix + "/" + level
}

// Publish sends a as JSON and waits for the broker acknowledgement or ctx.
func (m *MQTTMirror) Publish(ctx context.Context, a models.UserActivity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("mqtt: encode activity: %w", err)
	}
	tok := m.client.Publish(m.Topic(a.UserID), m.qos, false, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt: publish: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt: publish: %w", ctx.Err())
	}
}

// Close disconnects from the broker.
func (m *MQTTMirror) Close() {
	m.client.Disconnect(250)
}
