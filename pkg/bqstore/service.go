package bqstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/metrics"
	"github.com/illmade-knight/go-telex/pkg/retry"
)

const sinkName = "bigquery"

// NewBigQueryService assembles the BigQuery export over a BatchingService.
// Transient insert failures are retried under policy; row rejections are not,
// since resending the same rows cannot succeed. Messages are acked only after
// a successful insert.
func NewBigQueryService(
	cfg messagepipeline.BatchingServiceConfig,
	consumer messagepipeline.MessageConsumer,
	inserter DataBatchInserter[TelexRow],
	policy retry.Policy,
	logger zerolog.Logger,
) (*messagepipeline.BatchingService[TelexRow], error) {
	if inserter == nil {
		return nil, errors.New("inserter cannot be nil")
	}
	logger = logger.With().Str("component", "BigQueryService").Logger()

	processor := func(ctx context.Context, batch []messagepipeline.ProcessableItem[TelexRow]) error {
		if len(batch) == 0 {
			return nil
		}
		rows := make([]*TelexRow, len(batch))
		for i, item := range batch {
			rows[i] = item.Payload
		}

		err := retry.Do(ctx, "bigquery_insert", policy, logger, func(ctx context.Context) error {
			err := inserter.InsertBatch(ctx, rows)
			var multi bigquery.PutMultiError
			if errors.As(err, &multi) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			metrics.ExportBatchesTotal.WithLabelValues(sinkName, "failure").Inc()
			logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to insert batch, Nacking all messages.")
			for _, item := range batch {
				item.Original.Nack()
			}
			return err
		}

		metrics.ExportBatchesTotal.WithLabelValues(sinkName, "success").Inc()
		logger.Debug().Int("batch_size", len(batch)).Msg("Inserted batch, Acking all messages.")
		for _, item := range batch {
			item.Original.Ack()
		}
		return nil
	}

	service, err := messagepipeline.NewBatchingService[TelexRow](cfg, consumer, TelexRowTransformer, processor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batching service for bqstore: %w", err)
	}
	return service, nil
}
