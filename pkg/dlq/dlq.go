// Package dlq keeps telexes the pipeline could not handle so they can be
// inspected or replayed later.
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/metrics"
)

// Letter is one dead-lettered telex.
type Letter struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Raw       string    `json:"raw"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error,omitempty"`
}

// Publisher forwards letters to a remote dead-letter topic.
// messagepipeline.SimplePublisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
}

// Queue writes letters as one JSON file each under a directory, and optionally
// forwards them to a Publisher. A nil *Queue discards everything.
type Queue struct {
	basePath  string
	publisher Publisher
	logger    zerolog.Logger

	mu      sync.Mutex
	written uint64
	now     func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithPublisher also publishes every letter to p.
func WithPublisher(p Publisher) Option {
	return func(q *Queue) { q.publisher = p }
}

// NewQueue creates the directory if needed and returns a queue writing to it.
func NewQueue(basePath string, logger zerolog.Logger, opts ...Option) (*Queue, error) {
	if basePath == "" {
		return nil, errors.New("dlq directory is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}
	q := &Queue{
		basePath: basePath,
		logger:   logger.With().Str("component", "DeadLetterQueue").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Write stores l on disk and forwards it when a publisher is set. The local
// write is authoritative; a publish failure is logged, not returned.
func (q *Queue) Write(ctx context.Context, l Letter) error {
	if q == nil {
		return nil
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = q.now().UTC()
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dlq letter: %w", err)
	}

	q.mu.Lock()
	name := fmt.Sprintf("failed_%d_%06d.json", l.Timestamp.Unix(), q.written)
	err = os.WriteFile(filepath.Join(q.basePath, name), data, 0o644)
	if err == nil {
		q.written++
	}
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write dlq letter: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues("file", l.Reason).Inc()
	q.logger.Info().Str("file", name).Str("reason", l.Reason).Msg("Wrote dead letter.")

	if q.publisher != nil {
		attrs := map[string]string{"reason": l.Reason, "source": l.Source}
		if pubErr := q.publisher.Publish(ctx, data, attrs); pubErr != nil {
			q.logger.Warn().Err(pubErr).Str("file", name).Msg("Failed to publish dead letter.")
		} else {
			metrics.DLQMessagesTotal.WithLabelValues("pubsub", l.Reason).Inc()
		}
	}
	return nil
}

// List returns up to limit letters, oldest first. A limit of zero lists all.
func (q *Queue) List(limit int) ([]Letter, error) {
	if q == nil {
		return nil, errors.New("dlq not enabled")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	names, err := q.files()
	if err != nil {
		return nil, err
	}
	var out []Letter
	for _, name := range names {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.basePath, name))
		if err != nil {
			q.logger.Warn().Err(err).Str("file", name).Msg("Failed to read dead letter.")
			continue
		}
		var l Letter
		if err := json.Unmarshal(data, &l); err != nil {
			q.logger.Warn().Err(err).Str("file", name).Msg("Failed to parse dead letter.")
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Purge removes every letter and returns how many were deleted.
func (q *Queue) Purge() (int, error) {
	if q == nil {
		return 0, errors.New("dlq not enabled")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	names, err := q.files()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, name := range names {
		if err := os.Remove(filepath.Join(q.basePath, name)); err != nil {
			q.logger.Warn().Err(err).Str("file", name).Msg("Failed to delete dead letter.")
			continue
		}
		deleted++
	}
	q.logger.Info().Int("deleted", deleted).Msg("Purged dead letters.")
	return deleted, nil
}

func (q *Queue) files() ([]string, error) {
	entries, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "failed_") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
