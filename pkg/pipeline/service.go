package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

// Result is a parsed telex on its way to the archive.
type Result struct {
	Raw    string
	Source string
	Record telex.ParsedRecord
}

// Transformer parses each message. Malformed telexes are dead-lettered and
// skipped, so the source acks them rather than redelivering.
func (p *Processor) Transformer() messagepipeline.MessageTransformer[Result] {
	return func(ctx context.Context, msg *messagepipeline.Message) (*Result, bool, error) {
		raw := string(msg.Payload)
		rec, err := p.Parse(ctx, raw)
		if err != nil {
			p.reject(ctx, raw, msg.Source, msg.ID, "malformed", err)
			return nil, true, nil
		}
		return &Result{Raw: raw, Source: msg.Source, Record: rec}, false, nil
	}
}

// Sink appends each result to the archive. Exports observe the archive.
func (p *Processor) Sink() messagepipeline.StreamProcessor[Result] {
	return func(_ context.Context, _ messagepipeline.Message, res *Result) error {
		if p.archive == nil {
			return errors.New("processor has no archive")
		}
		e := p.archive.Append(res.Raw, res.Record, res.Source)
		p.logger.Debug().
			Int("seq", e.Seq).
			Str("message_type", string(res.Record.Type)).
			Str("source", res.Source).
			Msg("Archived telex.")
		return nil
	}
}

// IngestConfig configures an ingest service.
type IngestConfig struct {
	// MaxPayloadBytes rejects larger payloads before parsing. Zero disables the check.
	MaxPayloadBytes int `mapstructure:"max_payload_bytes"`
}

// NewIngestService runs consumer through p on a single-worker StreamingService,
// so telexes reach the archive in the order the source delivers them. Sources
// run side by side, each with its own service. Oversized payloads are
// dead-lettered without being parsed.
func NewIngestService(cfg IngestConfig, consumer messagepipeline.MessageConsumer, p *Processor, logger zerolog.Logger) (*messagepipeline.StreamingService[Result], error) {
	transformer := messagepipeline.WithPayloadValidation(p.Transformer(), 0, cfg.MaxPayloadBytes, p.rejectPayload, logger)
	return messagepipeline.NewStreamingService[Result](
		messagepipeline.StreamingServiceConfig{NumWorkers: 1},
		consumer, transformer, p.Sink(), logger)
}

func (p *Processor) rejectPayload(ctx context.Context, msg *messagepipeline.Message, reason string) {
	p.reject(ctx, string(msg.Payload), msg.Source, msg.ID, reason, errors.New(reason))
}
