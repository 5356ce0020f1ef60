package messagepipeline

import (
	"context"
)

// MessageConsumer is a telex source (file tail, Pub/Sub, Kafka, MQTT, NATS or an
// in-process channel). It hands each raw telex to the pipeline as a Message.
type MessageConsumer interface {
	// Messages returns the channel pipeline workers receive from. It is closed
	// once the consumer has stopped.
	Messages() <-chan Message
	// Start begins consumption in the background.
	Start(ctx context.Context) error
	// Stop ceases consumption and waits for background goroutines to finish.
	Stop(ctx context.Context) error
	// Done is closed when the consumer has completely shut down.
	Done() <-chan struct{}
}

// MessageTransformer turns a Message into a payload of type T.
//
// Returning skip=true acknowledges the message without processing it further.
// An error Nacks the message so the source may redeliver it.
type MessageTransformer[T any] func(ctx context.Context, msg *Message) (payload *T, skip bool, err error)

// ProcessableItem links a transformed payload with its original message.
type ProcessableItem[T any] struct {
	Original Message
	Payload  *T
}

// StreamProcessor handles transformed messages one at a time. An error Nacks
// the original message.
type StreamProcessor[T any] func(ctx context.Context, original Message, payload *T) error

// BatchProcessor handles a batch of transformed messages. It owns the Ack/Nack
// of every item; an error it returns is only logged.
type BatchProcessor[T any] func(ctx context.Context, batch []ProcessableItem[T]) error
