package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
)

// FeedTimeout bounds how long an append waits on a full export buffer.
const FeedTimeout = 5 * time.Second

// Feed subscribes consumer to a, so every entry appended from now on is pushed
// to it as a JSON-encoded message. Export services read from consumer.
func Feed(a *Archive, consumer *messagepipeline.ChannelConsumer, logger zerolog.Logger) {
	logger = logger.With().Str("component", "ArchiveFeed").Logger()
	a.Subscribe(func(e Entry) {
		payload, err := json.Marshal(e)
		if err != nil {
			logger.Error().Err(err).Int("seq", e.Seq).Msg("Failed to encode archive entry for export.")
			return
		}
		msg := messagepipeline.NewMessage(e.ID, payload, messagepipeline.SourceArchive)
		msg.PublishTime = e.ReceivedAt

		ctx, cancel := context.WithTimeout(context.Background(), FeedTimeout)
		defer cancel()
		if err := consumer.Push(ctx, msg); err != nil {
			if errors.Is(err, messagepipeline.ErrConsumerStopped) {
				logger.Debug().Int("seq", e.Seq).Msg("Export feed stopped, entry not exported.")
				return
			}
			logger.Warn().Err(err).Int("seq", e.Seq).Msg("Export feed is backed up, entry not exported.")
		}
	})
}

// DecodeEntry reverses the encoding Feed applies.
func DecodeEntry(msg *messagepipeline.Message) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Entry{}, fmt.Errorf("decode archive entry %s: %w", msg.ID, err)
	}
	return e, nil
}
