package icestore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/metrics"
	"github.com/illmade-knight/go-telex/pkg/retry"
)

const sinkName = "gcs"

// NewIceStorageService assembles the GCS export: consumer (normally the
// archive feed) to ArchivalTransformer to uploader. A batch is retried under
// policy and its messages are acked only once the upload succeeds.
func NewIceStorageService(
	cfg messagepipeline.BatchingServiceConfig,
	consumer messagepipeline.MessageConsumer,
	uploader BatchUploader,
	policy retry.Policy,
	logger zerolog.Logger,
) (*messagepipeline.BatchingService[ArchivalRecord], error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader cannot be nil")
	}
	logger = logger.With().Str("component", "IceStorageService").Logger()

	processor := func(ctx context.Context, batch []messagepipeline.ProcessableItem[ArchivalRecord]) error {
		if len(batch) == 0 {
			return nil
		}
		records := make([]*ArchivalRecord, len(batch))
		for i, item := range batch {
			records[i] = item.Payload
		}

		err := retry.Do(ctx, "gcs_upload", policy, logger, func(ctx context.Context) error {
			return uploader.UploadBatch(ctx, records)
		})
		if err != nil {
			metrics.ExportBatchesTotal.WithLabelValues(sinkName, "failure").Inc()
			logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to export batch to GCS, Nacking messages.")
			for _, item := range batch {
				item.Original.Nack()
			}
			return err
		}

		metrics.ExportBatchesTotal.WithLabelValues(sinkName, "success").Inc()
		for _, item := range batch {
			item.Original.Ack()
		}
		return nil
	}

	service, err := messagepipeline.NewBatchingService[ArchivalRecord](cfg, consumer, ArchivalTransformer, processor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batching service for icestore: %w", err)
	}
	return service, nil
}
