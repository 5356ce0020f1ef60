package messagepipeline

import (
	"time"
)

// Source names used in the Source field and in metrics labels.
const (
	SourceFile    = "file"
	SourcePubsub  = "pubsub"
	SourceKafka   = "kafka"
	SourceMQTT    = "mqtt"
	SourceNATS    = "nats"
	SourceHTTP    = "http"
	SourceArchive = "archive"
)

// Message is one raw telex moving through the pipeline together with its
// acknowledgment handles.
type Message struct {
	MessageData

	// Attributes holds broker metadata (Pub/Sub attributes, Kafka headers, MQTT topic).
	Attributes map[string]string

	// Ack signals the source that the telex was handled.
	Ack func()

	// Nack signals that handling failed and the source may redeliver.
	Nack func()
}

// MessageData is the serializable part of a Message.
type MessageData struct {
	// ID is the source's identifier for the message, if it has one.
	ID string `json:"id"`

	// Payload is the raw telex text.
	Payload []byte `json:"payload"`

	// PublishTime is when the source received or published the message.
	PublishTime time.Time `json:"publishTime"`

	// Source names the consumer that produced the message.
	Source string `json:"source"`
}

// NewMessage builds a Message whose Ack and Nack do nothing. Sources without
// broker acknowledgment (files, HTTP, NATS core) use it.
func NewMessage(id string, payload []byte, source string) Message {
	return Message{
		MessageData: MessageData{
			ID:          id,
			Payload:     payload,
			PublishTime: time.Now().UTC(),
			Source:      source,
		},
		Ack:  func() {},
		Nack: func() {},
	}
}
