package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// ErrPublisherStopped is returned by Publish after Stop.
var ErrPublisherStopped = errors.New("publisher stopped")

// publishResultTimeout bounds the wait for the server's publish ack.
const publishResultTimeout = 30 * time.Second

// SimplePublisher publishes single messages without batching. The dead-letter
// queue forwards rejected telexes through it.
type SimplePublisher interface {
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
	// Stop flushes pending messages, bounded by ctx.
	Stop(ctx context.Context) error
}

// GoogleSimplePublisher publishes to one Pub/Sub topic. Publish returns once
// the message is queued; the server result is awaited in the background and
// failures are counted.
type GoogleSimplePublisher struct {
	topic  *pubsub.Topic
	logger zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	pending sync.WaitGroup
	failed  atomic.Int64
}

// NewGoogleSimplePublisher fails if topicID does not exist.
func NewGoogleSimplePublisher(ctx context.Context, client *pubsub.Client, topicID string, logger zerolog.Logger) (*GoogleSimplePublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", topicID)
	}
	return &GoogleSimplePublisher{
		topic:  topic,
		logger: logger.With().Str("component", "GoogleSimplePublisher").Str("topic_id", topicID).Logger(),
	}, nil
}

func (p *GoogleSimplePublisher) Publish(ctx context.Context, payload []byte, attributes map[string]string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPublisherStopped
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: attributes})
	p.pending.Add(1)
	go p.await(result, attributes["reason"])
	return nil
}

func (p *GoogleSimplePublisher) await(result *pubsub.PublishResult, reason string) {
	defer p.pending.Done()
	// The caller's context may be gone by the time the server answers.
	ctx, cancel := context.WithTimeout(context.Background(), publishResultTimeout)
	defer cancel()
	id, err := result.Get(ctx)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error().Err(err).Str("reason", reason).Msg("Failed to publish message.")
		return
	}
	p.logger.Debug().Str("published_msg_id", id).Str("reason", reason).Msg("Message published.")
}

// Failed counts publishes the server rejected or never confirmed.
func (p *GoogleSimplePublisher) Failed() int64 { return p.failed.Load() }

// Stop refuses new messages, flushes the topic and waits for outstanding results.
func (p *GoogleSimplePublisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	flushed := make(chan struct{})
	go func() {
		p.topic.Stop()
		p.pending.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
