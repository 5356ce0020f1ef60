package mqttconverter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
)

// MqttConsumer implements messagepipeline.MessageConsumer over a Paho client.
type MqttConsumer struct {
	client     mqtt.Client
	cfg        *MQTTClientConfig
	logger     zerolog.Logger
	outputChan chan messagepipeline.Message
	doneChan   chan struct{}
	stopping   chan struct{}
	stopOnce   sync.Once

	sendMu sync.RWMutex
	closed bool
}

// NewMqttConsumer wraps client. Start connects it if needed.
func NewMqttConsumer(client mqtt.Client, cfg *MQTTClientConfig, logger zerolog.Logger) (*MqttConsumer, error) {
	if client == nil {
		return nil, errors.New("MQTT client cannot be nil")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("at least one MQTT topic is required")
	}
	return &MqttConsumer{
		client:     client,
		cfg:        cfg,
		logger:     logger.With().Str("component", "MqttConsumer").Logger(),
		outputChan: make(chan messagepipeline.Message, 1000),
		doneChan:   make(chan struct{}),
		stopping:   make(chan struct{}),
	}, nil
}

func (c *MqttConsumer) Messages() <-chan messagepipeline.Message { return c.outputChan }

func (c *MqttConsumer) Done() <-chan struct{} { return c.doneChan }

// Start connects and subscribes to every configured topic.
func (c *MqttConsumer) Start(ctx context.Context) error {
	if !c.client.IsConnected() {
		c.logger.Info().Str("broker", c.cfg.BrokerURL).Msg("Connecting to MQTT broker...")
		token := c.client.Connect()
		if !token.WaitTimeout(c.connectTimeout()) {
			return errors.New("timed out connecting to MQTT broker")
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to MQTT broker: %w", err)
		}
	}

	filters := make(map[string]byte, len(c.cfg.Topics))
	for _, topic := range c.cfg.Topics {
		filters[topic] = c.cfg.QoS
	}
	token := c.client.SubscribeMultiple(filters, c.handle)
	if token.WaitTimeout(c.connectTimeout()) && token.Error() != nil {
		return fmt.Errorf("subscribe to MQTT topics: %w", token.Error())
	}
	c.logger.Info().Strs("topics", c.cfg.Topics).Msg("Subscribed to MQTT telex topics.")

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-c.doneChan:
		}
	}()
	return nil
}

func (c *MqttConsumer) connectTimeout() time.Duration {
	if c.cfg.ConnectTimeout > 0 {
		return c.cfg.ConnectTimeout
	}
	return 10 * time.Second
}

// handle runs on Paho's delivery goroutine. QoS acknowledgment is done by Paho.
func (c *MqttConsumer) handle(_ mqtt.Client, m mqtt.Message) {
	payload := make([]byte, len(m.Payload()))
	copy(payload, m.Payload())
	msg := messagepipeline.NewMessage(fmt.Sprintf("%s#%d", m.Topic(), m.MessageID()), payload, messagepipeline.SourceMQTT)
	msg.Attributes = map[string]string{"mqtt_topic": m.Topic()}
	if m.Duplicate() {
		msg.Attributes["mqtt_duplicate"] = "true"
	}

	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.outputChan <- msg:
	case <-c.stopping:
		c.logger.Warn().Str("topic", m.Topic()).Msg("Consumer is shutting down, dropping MQTT message.")
	}
}

// Stop unsubscribes, disconnects and closes the output channel.
func (c *MqttConsumer) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		c.logger.Info().Msg("Stopping MqttConsumer...")
		close(c.stopping)
		if c.client.IsConnected() {
			if token := c.client.Unsubscribe(c.cfg.Topics...); token.WaitTimeout(2*time.Second) && token.Error() != nil {
				c.logger.Warn().Err(token.Error()).Msg("Failed to unsubscribe from MQTT topics.")
			}
			c.client.Disconnect(500)
		}
		c.sendMu.Lock()
		c.closed = true
		close(c.outputChan)
		c.sendMu.Unlock()
		close(c.doneChan)
		c.logger.Info().Msg("MqttConsumer stopped.")
	})
	return nil
}
