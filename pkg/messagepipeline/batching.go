package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type BatchingServiceConfig struct {
	NumWorkers    int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Minute
)

// BatchingService transforms messages on a worker pool and hands them to a
// batch processor once BatchSize items are waiting or FlushInterval has
// passed. The processor settles every item itself. The export sinks run on
// it, fed by the archive.
type BatchingService[T any] struct {
	cfg         BatchingServiceConfig
	consumer    MessageConsumer
	transformer MessageTransformer[T]
	processor   BatchProcessor[T]
	logger      zerolog.Logger

	transformWg sync.WaitGroup
	flushWg     sync.WaitGroup
	pending     chan ProcessableItem[T]
}

func NewBatchingService[T any](
	cfg BatchingServiceConfig,
	consumer MessageConsumer,
	transformer MessageTransformer[T],
	processor BatchProcessor[T],
	logger zerolog.Logger,
) (*BatchingService[T], error) {
	if consumer == nil || transformer == nil || processor == nil {
		return nil, errors.New("consumer, transformer and processor are required")
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = defaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &BatchingService[T]{
		cfg:         cfg,
		consumer:    consumer,
		transformer: transformer,
		processor:   processor,
		logger:      logger.With().Str("component", "BatchingService").Logger(),
		pending:     make(chan ProcessableItem[T], cfg.BatchSize*cfg.NumWorkers),
	}, nil
}

func (s *BatchingService[T]) Start(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message consumer: %w", err)
	}

	s.flushWg.Add(1)
	go s.collect(ctx)

	s.transformWg.Add(s.cfg.NumWorkers)
	for i := 0; i < s.cfg.NumWorkers; i++ {
		go s.transformWorker(ctx)
	}
	// pending is closed only after every transform worker has exited.
	go func() {
		s.transformWg.Wait()
		close(s.pending)
	}()

	s.logger.Info().
		Int("worker_count", s.cfg.NumWorkers).
		Int("batch_size", s.cfg.BatchSize).
		Dur("flush_interval", s.cfg.FlushInterval).
		Msg("Batching service started.")
	return nil
}

// Stop stops the consumer and waits for the final flush.
func (s *BatchingService[T]) Stop(ctx context.Context) error {
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Error during consumer stop, continuing shutdown.")
	}
	if err := waitGroups(ctx, &s.transformWg, &s.flushWg); err != nil {
		s.logger.Error().Err(err).Msg("Timeout waiting for the final flush.")
		return err
	}
	s.logger.Info().Msg("Batching service stopped.")
	return nil
}

func (s *BatchingService[T]) transformWorker(ctx context.Context) {
	defer s.transformWg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				return
			}
			if payload, ok := transform(ctx, s.transformer, &msg, s.logger); ok {
				s.pending <- ProcessableItem[T]{Original: msg, Payload: payload}
			}
		}
	}
}

// collect accumulates items and flushes on size, on the ticker and once more
// when pending closes.
func (s *BatchingService[T]) collect(ctx context.Context) {
	defer s.flushWg.Done()

	batch := make([]ProcessableItem[T], 0, s.cfg.BatchSize)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func(flushCtx context.Context, reason string) {
		if len(batch) == 0 {
			return
		}
		s.logger.Debug().Int("batch_size", len(batch)).Str("reason", reason).Msg("Flushing batch.")
		if err := s.processor(flushCtx, batch); err != nil {
			s.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch processor failed.")
		}
		batch = make([]ProcessableItem[T], 0, s.cfg.BatchSize)
		ticker.Reset(s.cfg.FlushInterval)
	}

	for {
		select {
		case item, ok := <-s.pending:
			if !ok {
				// The service context may already be cancelled on shutdown.
				flush(context.WithoutCancel(ctx), "shutdown")
				return
			}
			batch = append(batch, item)
			if len(batch) >= s.cfg.BatchSize {
				flush(ctx, "size")
			}
		case <-ticker.C:
			flush(ctx, "interval")
		}
	}
}
