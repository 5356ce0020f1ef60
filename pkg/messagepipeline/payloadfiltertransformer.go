package messagepipeline

import (
	"context"

	"github.com/rs/zerolog"
)

// RejectFunc is told about messages the payload check refused.
type RejectFunc func(ctx context.Context, msg *Message, reason string)

// WithPayloadValidation wraps inner so that payloads shorter than minSize or
// longer than maxSize bytes are skipped before inner runs. A maxSize of zero
// disables the upper bound. onReject may be nil.
func WithPayloadValidation[T any](
	inner MessageTransformer[T],
	minSize int,
	maxSize int,
	onReject RejectFunc,
	logger zerolog.Logger,
) MessageTransformer[T] {
	return func(ctx context.Context, msg *Message) (*T, bool, error) {
		payloadLen := len(msg.Payload)
		reason := ""
		switch {
		case payloadLen < minSize:
			reason = "payload_too_small"
		case maxSize > 0 && payloadLen > maxSize:
			reason = "payload_too_large"
		}
		if reason != "" {
			logger.Warn().Str("msg_id", msg.ID).Int("payload_size", payloadLen).Str("reason", reason).Msg("Rejecting message due to invalid payload size.")
			if onReject != nil {
				onReject(ctx, msg, reason)
			}
			return nil, true, nil
		}
		return inner(ctx, msg)
	}
}
