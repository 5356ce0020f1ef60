package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaConsumerConfig configures a Kafka topic telex source.
type KafkaConsumerConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// KafkaReader is the subset of *kafka.Reader the consumer uses.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader builds a consumer-group reader for cfg.
func NewKafkaReader(cfg KafkaConsumerConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka brokers, topic and group id are required")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
		MaxWait:  500 * time.Millisecond,
	}), nil
}

// KafkaConsumer delivers telexes from a Kafka topic. Ack commits the message
// offset; Nack leaves it uncommitted so the group redelivers after a restart.
type KafkaConsumer struct {
	reader     KafkaReader
	logger     zerolog.Logger
	outputChan chan Message
	doneChan   chan struct{}
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

func NewKafkaConsumer(reader KafkaReader, logger zerolog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		logger:     logger.With().Str("component", "KafkaConsumer").Logger(),
		outputChan: make(chan Message, 64),
		doneChan:   make(chan struct{}),
	}
}

func (c *KafkaConsumer) Messages() <-chan Message { return c.outputChan }

func (c *KafkaConsumer) Done() <-chan struct{} { return c.doneChan }

func (c *KafkaConsumer) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go func() {
		defer close(c.doneChan)
		defer close(c.outputChan)
		c.logger.Info().Msg("Kafka fetch loop started.")
		for {
			m, err := c.reader.FetchMessage(runCtx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || runCtx.Err() != nil {
					c.logger.Info().Msg("Kafka fetch loop stopped.")
					return
				}
				c.logger.Error().Err(err).Msg("Failed to fetch Kafka message.")
				select {
				case <-runCtx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			select {
			case c.outputChan <- c.toMessage(m):
			case <-runCtx.Done():
				return
			}
		}
	}()
	return nil
}

func (c *KafkaConsumer) toMessage(m kafka.Message) Message {
	attrs := make(map[string]string, len(m.Headers)+3)
	for _, h := range m.Headers {
		attrs[h.Key] = string(h.Value)
	}
	attrs["topic"] = m.Topic
	attrs["partition"] = strconv.Itoa(m.Partition)
	if len(m.Key) > 0 {
		attrs["key"] = string(m.Key)
	}
	id := fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)
	return Message{
		MessageData: MessageData{
			ID:          id,
			Payload:     m.Value,
			PublishTime: m.Time,
			Source:      SourceKafka,
		},
		Attributes: attrs,
		Ack: func() {
			commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.reader.CommitMessages(commitCtx, m); err != nil {
				c.logger.Error().Err(err).Str("msg_id", id).Msg("Failed to commit Kafka offset.")
			}
		},
		Nack: func() {
			c.logger.Warn().Str("msg_id", id).Msg("Kafka message not committed.")
		},
	}
}

func (c *KafkaConsumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			select {
			case <-c.doneChan:
			case <-ctx.Done():
				err = ctx.Err()
			}
		} else {
			close(c.outputChan)
			close(c.doneChan)
		}
		if closeErr := c.reader.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close kafka reader: %w", closeErr))
		}
	})
	return err
}
