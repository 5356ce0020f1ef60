package icestore

import (
	"cmp"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GCSBatchUploaderConfig names the bucket and the object prefix exports go under.
type GCSBatchUploaderConfig struct {
	BucketName   string `mapstructure:"bucket"`
	ObjectPrefix string `mapstructure:"object_prefix"`
}

// BatchUploader writes a batch of records to durable storage.
type BatchUploader interface {
	UploadBatch(ctx context.Context, items []*ArchivalRecord) error
}

// GCSBatchUploader groups records by batch key and writes each group to its
// own object, named <prefix>/<key>/<firstSeq>-<lastSeq>-<uuid>.jsonl.gz.
type GCSBatchUploader struct {
	client GCSClient
	config GCSBatchUploaderConfig
	logger zerolog.Logger
}

func NewGCSBatchUploader(gcsClient GCSClient, config GCSBatchUploaderConfig, logger zerolog.Logger) (*GCSBatchUploader, error) {
	if gcsClient == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if config.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	return &GCSBatchUploader{
		client: gcsClient,
		config: config,
		logger: logger.With().Str("component", "GCSBatchUploader").Logger(),
	}, nil
}

// UploadBatch uploads every group in parallel and joins their errors.
func (u *GCSBatchUploader) UploadBatch(ctx context.Context, items []*ArchivalRecord) error {
	groups := make(map[string][]*ArchivalRecord)
	for _, item := range items {
		if item == nil || item.BatchKey == "" {
			continue
		}
		groups[item.BatchKey] = append(groups[item.BatchKey], item)
	}
	if len(groups) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(groups))
	for key, group := range groups {
		wg.Add(1)
		go func(key string, group []*ArchivalRecord) {
			defer wg.Done()
			if err := u.uploadGroup(ctx, key, group); err != nil {
				errs <- err
			}
		}(key, group)
	}
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}

// uploadGroup writes group in Seq order; batches from parallel workers can
// arrive out of order.
func (u *GCSBatchUploader) uploadGroup(ctx context.Context, key string, group []*ArchivalRecord) error {
	slices.SortFunc(group, func(a, b *ArchivalRecord) int { return cmp.Compare(a.Seq, b.Seq) })
	name := fmt.Sprintf("%06d-%06d-%s.jsonl.gz", group[0].Seq, group[len(group)-1].Seq, uuid.NewString())
	objectName := path.Join(u.config.ObjectPrefix, key, name)

	w := u.client.Bucket(u.config.BucketName).Object(objectName).NewWriter(ctx)
	pr, pw := io.Pipe()

	go func() {
		gz := gzip.NewWriter(pw)
		enc := json.NewEncoder(gz)
		for _, rec := range group {
			if err := enc.Encode(rec); err != nil {
				_ = pw.CloseWithError(fmt.Errorf("encode record %d for %s: %w", rec.Seq, objectName, err))
				return
			}
		}
		_ = pw.CloseWithError(gz.Close())
	}()

	written, copyErr := io.Copy(w, pr)
	closeErr := w.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to stream GCS object %s: %w", objectName, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalize GCS object %s: %w", objectName, closeErr)
	}

	u.logger.Info().
		Str("object_name", objectName).
		Int("record_count", len(group)).
		Int64("bytes_written", written).
		Msg("Uploaded telex batch to GCS.")
	return nil
}
