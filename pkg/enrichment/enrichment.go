// Package enrichment joins the codes found in a parsed telex against the
// reference tables and fills the record's enrichment fields.
package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/metrics"
	"github.com/illmade-knight/go-telex/pkg/reference"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

// Fetcher is a generic function type for fetching data by a key.
// This is the dependency contract for the NewEnricherFunc factory.
type Fetcher[K any, V any] func(ctx context.Context, key K) (V, error)

// RecordEnricher fills some of the enrichment fields of rec in place. It never
// fails: an unresolvable code leaves its fields as they were.
type RecordEnricher func(ctx context.Context, rec *telex.ParsedRecord)

// KeyExtractor returns the lookup key held by a record, if any.
type KeyExtractor[K comparable] func(rec *telex.ParsedRecord) (K, bool)

// Applier copies fetched reference data onto a record.
type Applier[V any] func(rec *telex.ParsedRecord, data V)

// NewEnricherFunc builds a RecordEnricher for one table. Lookup misses are
// reported to misses (which may be nil) and are not errors.
func NewEnricherFunc[K comparable, V any](
	table string,
	fetcher Fetcher[K, V],
	keyEx KeyExtractor[K],
	applier Applier[V],
	misses *MissTracker,
	logger zerolog.Logger,
) (RecordEnricher, error) {
	if fetcher == nil || keyEx == nil || applier == nil {
		return nil, fmt.Errorf("fetcher, keyExtractor, and applier cannot be nil")
	}

	enrichLogger := logger.With().Str("component", "EnricherFunc").Str("table", table).Logger()

	return func(ctx context.Context, rec *telex.ParsedRecord) {
		key, ok := keyEx(rec)
		if !ok {
			return
		}

		data, err := fetcher(ctx, key)
		if err != nil {
			if errors.Is(err, reference.ErrNotFound) {
				metrics.EnrichmentLookupsTotal.WithLabelValues(table, "miss").Inc()
				enrichLogger.Debug().Str("code", fmt.Sprintf("%v", key)).Msg("Reference code not found.")
				misses.Report(ctx, table, fmt.Sprintf("%v", key))
				return
			}
			metrics.EnrichmentLookupsTotal.WithLabelValues(table, "error").Inc()
			enrichLogger.Warn().Err(err).Str("code", fmt.Sprintf("%v", key)).Msg("Reference lookup failed, leaving fields empty.")
			return
		}

		metrics.EnrichmentLookupsTotal.WithLabelValues(table, "hit").Inc()
		applier(rec, data)
	}, nil
}
