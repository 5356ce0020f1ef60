package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NatsConsumerConfig configures a NATS subject telex source.
type NatsConsumerConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	// Queue, when set, load-balances the subject across telexd instances.
	Queue string `mapstructure:"queue"`
	Name  string `mapstructure:"name"`
}

// ConnectNATS dials cfg.URL with reconnects enabled.
func ConnectNATS(cfg NatsConsumerConfig, logger zerolog.Logger) (*nats.Conn, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "telexd"
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected.")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected.")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NatsConsumer delivers telexes published on a NATS subject. Core NATS has no
// redelivery, so Ack and Nack only reply when the publisher asked for one.
type NatsConsumer struct {
	conn       *nats.Conn
	cfg        NatsConsumerConfig
	sub        *nats.Subscription
	logger     zerolog.Logger
	outputChan chan Message
	doneChan   chan struct{}
	stopOnce   sync.Once
	seq        atomic.Uint64
	stopping   chan struct{}

	// sendMu keeps the output channel open while a handler is sending.
	sendMu sync.RWMutex
	closed bool
}

func NewNatsConsumer(conn *nats.Conn, cfg NatsConsumerConfig, logger zerolog.Logger) (*NatsConsumer, error) {
	if cfg.Subject == "" {
		return nil, errors.New("nats subject is required")
	}
	return &NatsConsumer{
		conn:       conn,
		cfg:        cfg,
		logger:     logger.With().Str("component", "NatsConsumer").Str("subject", cfg.Subject).Logger(),
		outputChan: make(chan Message, 64),
		doneChan:   make(chan struct{}),
		stopping:   make(chan struct{}),
	}, nil
}

func (c *NatsConsumer) Messages() <-chan Message { return c.outputChan }

func (c *NatsConsumer) Done() <-chan struct{} { return c.doneChan }

func (c *NatsConsumer) Start(ctx context.Context) error {
	if c.conn == nil {
		return errors.New("nats connection cannot be nil")
	}
	var err error
	if c.cfg.Queue != "" {
		c.sub, err = c.conn.QueueSubscribe(c.cfg.Subject, c.cfg.Queue, c.handle)
	} else {
		c.sub, err = c.conn.Subscribe(c.cfg.Subject, c.handle)
	}
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.cfg.Subject, err)
	}
	c.logger.Info().Str("queue", c.cfg.Queue).Msg("Subscribed to NATS subject.")
	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// handle runs on the subscription's delivery goroutine.
func (c *NatsConsumer) handle(m *nats.Msg) {
	msg := c.toMessage(m)
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.outputChan <- msg:
	case <-c.stopping:
		c.logger.Warn().Str("msg_id", msg.ID).Msg("Consumer stopping, dropping NATS message.")
	}
}

func (c *NatsConsumer) toMessage(m *nats.Msg) Message {
	attrs := map[string]string{"subject": m.Subject}
	for k := range m.Header {
		attrs[k] = m.Header.Get(k)
	}
	id := m.Header.Get(nats.MsgIdHdr)
	if id == "" {
		id = m.Subject + "#" + strconv.FormatUint(c.seq.Add(1), 10)
	}
	payload := make([]byte, len(m.Data))
	copy(payload, m.Data)

	msg := NewMessage(id, payload, SourceNATS)
	msg.Attributes = attrs
	if m.Reply != "" {
		msg.Ack = func() { _ = m.Respond([]byte("ack")) }
		msg.Nack = func() { _ = m.Respond([]byte("nack")) }
	}
	return msg
}

// Stop unsubscribes, waits for in-flight handlers and closes the output channel.
func (c *NatsConsumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopping)
		if c.sub != nil {
			if unsubErr := c.sub.Unsubscribe(); unsubErr != nil && !errors.Is(unsubErr, nats.ErrConnectionClosed) {
				err = fmt.Errorf("unsubscribe: %w", unsubErr)
			}
		}
		c.sendMu.Lock()
		c.closed = true
		close(c.outputChan)
		c.sendMu.Unlock()
		close(c.doneChan)
		c.logger.Info().Msg("NATS consumer stopped.")
	})
	return err
}
