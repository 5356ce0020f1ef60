// Package pipeline runs one raw telex through envelope extraction,
// classification, field extraction, enrichment and archiving.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/dlq"
	"github.com/illmade-knight/go-telex/pkg/enrichment"
	"github.com/illmade-knight/go-telex/pkg/extractor"
	"github.com/illmade-knight/go-telex/pkg/metrics"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

// DefaultMinLength is the shortest message body, in characters after trimming,
// accepted as a telex.
const DefaultMinLength = 3

// ErrMalformed reports a telex whose body is too short to parse. Nothing is
// stored for it.
var ErrMalformed = errors.New("malformed telex")

// Processor owns the parse path. It is safe for concurrent use.
type Processor struct {
	router    *extractor.Router
	engine    *enrichment.Engine
	archive   *archive.Archive
	deadMail  *dlq.Queue
	minLength int
	logger    zerolog.Logger
}

type Option func(*Processor)

// WithDeadLetters writes malformed telexes to q.
func WithDeadLetters(q *dlq.Queue) Option {
	return func(p *Processor) { p.deadMail = q }
}

// WithMinLength overrides DefaultMinLength. Values below 1 are ignored.
func WithMinLength(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minLength = n
		}
	}
}

// NewProcessor builds a processor. archive may be nil for parse-only use.
func NewProcessor(router *extractor.Router, engine *enrichment.Engine, arch *archive.Archive, logger zerolog.Logger, opts ...Option) (*Processor, error) {
	if router == nil || engine == nil {
		return nil, errors.New("router and enrichment engine are required")
	}
	p := &Processor{
		router:    router,
		engine:    engine,
		archive:   arch,
		minLength: DefaultMinLength,
		logger:    logger.With().Str("component", "Processor").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse turns raw into an enriched record. The only error is ErrMalformed.
func (p *Processor) Parse(ctx context.Context, raw string) (telex.ParsedRecord, error) {
	start := time.Now()
	env := telex.ExtractEnvelope(raw)
	if n := len(strings.TrimSpace(env.Body)); n < p.minLength {
		metrics.ObserveProcessing(string(telex.TypeUnknown), "malformed", time.Since(start))
		return telex.ParsedRecord{}, fmt.Errorf("%w: body has %d characters, need %d", ErrMalformed, n, p.minLength)
	}

	kind := telex.Classify(env)
	rec, supported := p.router.Route(env.Body, kind, extractor.ContextFromEnvelope(env))
	rec = p.engine.Enrich(ctx, rec)

	outcome := "parsed"
	if !supported {
		outcome = "unsupported"
	}
	metrics.ObserveProcessing(string(rec.Type), outcome, time.Since(start))
	return rec, nil
}

// Process parses raw and appends it to the archive. A malformed telex is
// logged, dead-lettered when a queue is set, and returned as ErrMalformed.
func (p *Processor) Process(ctx context.Context, raw, source string) (archive.Entry, error) {
	rec, err := p.Parse(ctx, raw)
	if err != nil {
		p.reject(ctx, raw, source, "", "malformed", err)
		return archive.Entry{}, err
	}
	if p.archive == nil {
		return archive.Entry{Raw: raw, Source: source, Record: rec}, nil
	}
	return p.archive.Append(raw, rec, source), nil
}

func (p *Processor) reject(ctx context.Context, raw, source, messageID, reason string, err error) {
	p.logger.Warn().
		Err(err).
		Str("source", source).
		Str("reason", reason).
		Str("msg_id", messageID).
		Msg("Dropping telex.")
	letter := dlq.Letter{
		Source:    source,
		MessageID: messageID,
		Raw:       raw,
		Reason:    reason,
		Error:     err.Error(),
	}
	if dlqErr := p.deadMail.Write(ctx, letter); dlqErr != nil {
		p.logger.Error().Err(dlqErr).Msg("Failed to dead-letter telex.")
	}
}
