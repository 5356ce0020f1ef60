package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/metrics"
)

// StreamingService runs a pool of workers that take telexes from a consumer,
// transform them and hand each result straight to a processor.
type StreamingService[T any] struct {
	numWorkers  int
	consumer    MessageConsumer
	transformer MessageTransformer[T]
	processor   StreamProcessor[T]
	logger      zerolog.Logger
	wg          sync.WaitGroup
}

type StreamingServiceConfig struct {
	NumWorkers int `mapstructure:"workers"`
}

const defaultWorkers = 5

func NewStreamingService[T any](
	cfg StreamingServiceConfig,
	consumer MessageConsumer,
	transformer MessageTransformer[T],
	processor StreamProcessor[T],
	logger zerolog.Logger,
) (*StreamingService[T], error) {
	if consumer == nil || transformer == nil || processor == nil {
		return nil, errors.New("consumer, transformer and processor are required")
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = defaultWorkers
	}
	return &StreamingService[T]{
		numWorkers:  cfg.NumWorkers,
		consumer:    consumer,
		transformer: transformer,
		processor:   processor,
		logger:      logger.With().Str("component", "StreamingService").Logger(),
	}, nil
}

// Start starts the consumer and then the workers.
func (s *StreamingService[T]) Start(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message consumer: %w", err)
	}
	s.wg.Add(s.numWorkers)
	for i := 0; i < s.numWorkers; i++ {
		go s.worker(ctx, i)
	}
	s.logger.Info().Int("worker_count", s.numWorkers).Msg("Streaming service started.")
	return nil
}

// Stop stops the consumer, then waits for in-flight telexes until ctx expires.
func (s *StreamingService[T]) Stop(ctx context.Context) error {
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Error during consumer stop, continuing shutdown.")
	}
	if err := waitGroups(ctx, &s.wg); err != nil {
		s.logger.Error().Err(err).Msg("Timeout waiting for processing workers to finish.")
		return err
	}
	s.logger.Info().Msg("Streaming service stopped.")
	return nil
}

func (s *StreamingService[T]) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	log := s.logger.With().Int("worker_id", workerID).Logger()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Worker exiting on context cancellation.")
			return
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				log.Debug().Msg("Consumer channel closed, worker exiting.")
				return
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *StreamingService[T]) handle(ctx context.Context, msg Message) {
	payload, ok := transform(ctx, s.transformer, &msg, s.logger)
	if !ok {
		return
	}
	if err := s.processor(ctx, msg, payload); err != nil {
		s.logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Processor failed to handle message, Nacking.")
		settle(msg, "nacked")
		return
	}
	settle(msg, "acked")
}

// transform runs transformer on msg and settles the message itself when it
// fails or is skipped. ok reports whether payload should go on.
func transform[T any](ctx context.Context, transformer MessageTransformer[T], msg *Message, logger zerolog.Logger) (payload *T, ok bool) {
	payload, skip, err := transformer(ctx, msg)
	switch {
	case err != nil:
		logger.Error().Err(err).Str("msg_id", msg.ID).Str("source", msg.Source).Msg("Failed to transform message, Nacking.")
		settle(*msg, "nacked")
		return nil, false
	case skip:
		logger.Debug().Str("msg_id", msg.ID).Msg("Transformer skipped message, Acking.")
		settle(*msg, "skipped")
		return nil, false
	}
	return payload, true
}

// settle acks or nacks msg and counts the outcome against its source.
func settle(msg Message, status string) {
	metrics.SourceMessagesTotal.WithLabelValues(msg.Source, status).Inc()
	if status == "nacked" {
		if msg.Nack != nil {
			msg.Nack()
		}
		return
	}
	if msg.Ack != nil {
		msg.Ack()
	}
}

// waitGroups waits for every group in order or returns ctx.Err.
func waitGroups(ctx context.Context, groups ...*sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		for _, wg := range groups {
			wg.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
