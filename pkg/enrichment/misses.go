package enrichment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/cache"
)

// MissTracker logs each unresolved reference code once. With a Redis presence
// cache the "once" holds across every telexd instance sharing it.
type MissTracker struct {
	seen   cache.PresenceCache[string, int64]
	logger zerolog.Logger
}

// NewMissTracker returns a tracker backed by seen.
func NewMissTracker(seen cache.PresenceCache[string, int64], logger zerolog.Logger) *MissTracker {
	return &MissTracker{
		seen:   seen,
		logger: logger.With().Str("component", "MissTracker").Logger(),
	}
}

// Report records that code was not found in table. A nil tracker does nothing.
func (m *MissTracker) Report(ctx context.Context, table, code string) {
	if m == nil || m.seen == nil {
		return
	}
	first, err := m.seen.Add(ctx, table+":"+code, time.Now().Unix())
	if err != nil {
		m.logger.Warn().Err(err).Str("table", table).Str("code", code).Msg("Failed to record missing reference code.")
		return
	}
	if first {
		m.logger.Info().Str("table", table).Str("code", code).Msg("Reference code missing from table.")
	}
}

// Seen reports whether code has already been reported for table.
func (m *MissTracker) Seen(ctx context.Context, table, code string) bool {
	if m == nil || m.seen == nil {
		return false
	}
	_, err := m.seen.Fetch(ctx, table+":"+code)
	return err == nil
}
