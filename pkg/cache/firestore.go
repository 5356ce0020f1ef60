package cache

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore client.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// FirestoreSource reads and writes one Firestore collection, one document per key.
// It is the source of truth that the Redis and LRU layers pull from.
type FirestoreSource[K comparable, V any] struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreSource creates a new FirestoreSource. The client is owned by the caller.
func NewFirestoreSource[K comparable, V any](
	cfg *FirestoreConfig,
	client *firestore.Client,
	logger zerolog.Logger,
) (*FirestoreSource[K, V], error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("FirestoreSource initialized.")

	return &FirestoreSource[K, V]{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreSource").Str("collection", cfg.CollectionName).Logger(),
	}, nil
}

// Fetch retrieves a single document by its key. A missing document wraps ErrNotFound.
func (s *FirestoreSource[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V
	stringKey := fmt.Sprintf("%v", key)
	docSnap, err := s.client.Collection(s.collectionName).Doc(stringKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			s.logger.Debug().Str("key", stringKey).Msg("Document not found in Firestore.")
			return zero, fmt.Errorf("document %s: %w", stringKey, ErrNotFound)
		}
		s.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to get document from Firestore.")
		return zero, fmt.Errorf("firestore get for %s: %w", stringKey, err)
	}

	var value V
	if err := docSnap.DataTo(&value); err != nil {
		return zero, fmt.Errorf("firestore DataTo for %s: %w", stringKey, err)
	}
	return value, nil
}

// WriteToCache writes value as the document for key.
func (s *FirestoreSource[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	stringKey := fmt.Sprintf("%v", key)
	if _, err := s.client.Collection(s.collectionName).Doc(stringKey).Set(ctx, value); err != nil {
		return fmt.Errorf("firestore set for %s: %w", stringKey, err)
	}
	return nil
}

// WriteAll stores every entry using BulkWriter.
func (s *FirestoreSource[K, V]) WriteAll(ctx context.Context, entries map[K]V) error {
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(entries))
	for k, v := range entries {
		job, err := bw.Set(s.client.Collection(s.collectionName).Doc(fmt.Sprintf("%v", k)), v)
		if err != nil {
			bw.End()
			return fmt.Errorf("firestore bulk set for %v: %w", k, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("firestore bulk write: %w", err)
		}
	}
	s.logger.Info().Int("documents", len(jobs)).Msg("Bulk write complete.")
	return nil
}

// Invalidate deletes the document for key.
func (s *FirestoreSource[K, V]) Invalidate(ctx context.Context, key K) error {
	stringKey := fmt.Sprintf("%v", key)
	if _, err := s.client.Collection(s.collectionName).Doc(stringKey).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete for %s: %w", stringKey, err)
	}
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (s *FirestoreSource[K, V]) Close() error {
	return nil
}
