// Package config loads telexd settings from an optional YAML file and
// TELEX_-prefixed environment variables.
package config

import (
	"time"

	"github.com/illmade-knight/go-telex/pkg/bqstore"
	"github.com/illmade-knight/go-telex/pkg/icestore"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/mqttconverter"
	"github.com/illmade-knight/go-telex/pkg/reference"
	"github.com/illmade-knight/go-telex/pkg/retry"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Sinks     SinksConfig     `mapstructure:"sinks"`
	Retry     retry.Policy    `mapstructure:"retry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

type PipelineConfig struct {
	MinLength       int `mapstructure:"min_length"`
	MaxPayloadBytes int `mapstructure:"max_payload_bytes"`
	// IngestBuffer sizes the queue behind POST /api/telex.
	IngestBuffer int `mapstructure:"ingest_buffer"`
}

// Reference backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type ReferenceConfig struct {
	Backend string                 `mapstructure:"backend"`
	Paths   reference.Paths        `mapstructure:"paths"`
	Remote  reference.RemoteConfig `mapstructure:"remote"`
	// MissTracker is "memory" or "redis"; redis shares first-sighting state
	// across instances using Remote.Redis.
	MissTracker string `mapstructure:"miss_tracker"`
	// MissTTL is how long a missing code stays reported; zero means forever.
	MissTTL time.Duration `mapstructure:"miss_ttl"`
}

type SourcesConfig struct {
	File   FileSource   `mapstructure:"file"`
	Pubsub PubsubSource `mapstructure:"pubsub"`
	Kafka  KafkaSource  `mapstructure:"kafka"`
	MQTT   MQTTSource   `mapstructure:"mqtt"`
	NATS   NATSSource   `mapstructure:"nats"`
}

type FileSource struct {
	Enabled                        bool `mapstructure:"enabled"`
	messagepipeline.FileTailConfig `mapstructure:",squash"`
}

type PubsubSource struct {
	Enabled                                    bool `mapstructure:"enabled"`
	messagepipeline.GooglePubsubConsumerConfig `mapstructure:",squash"`
}

type KafkaSource struct {
	Enabled                             bool `mapstructure:"enabled"`
	messagepipeline.KafkaConsumerConfig `mapstructure:",squash"`
}

type MQTTSource struct {
	Enabled                        bool `mapstructure:"enabled"`
	mqttconverter.MQTTClientConfig `mapstructure:",squash"`
}

type NATSSource struct {
	Enabled                            bool `mapstructure:"enabled"`
	messagepipeline.NatsConsumerConfig `mapstructure:",squash"`
}

type SinksConfig struct {
	// DLQDir holds one JSON file per dead-lettered telex.
	DLQDir string `mapstructure:"dlq_dir"`
	// DeadLetterTopic, when set, also publishes dead letters to Pub/Sub in ProjectID.
	DeadLetterTopic string         `mapstructure:"dead_letter_topic"`
	ProjectID       string         `mapstructure:"project_id"`
	GCS             GCSSink        `mapstructure:"gcs"`
	BigQuery        BigQuerySink   `mapstructure:"bigquery"`
	Batch           BatchingConfig `mapstructure:"batch"`
}

type GCSSink struct {
	Enabled                         bool `mapstructure:"enabled"`
	icestore.GCSBatchUploaderConfig `mapstructure:",squash"`
}

type BigQuerySink struct {
	Enabled                       bool `mapstructure:"enabled"`
	bqstore.BigQueryDatasetConfig `mapstructure:",squash"`
}

type BatchingConfig struct {
	Workers       int           `mapstructure:"workers"`
	Size          int           `mapstructure:"size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	Buffer        int           `mapstructure:"buffer"`
}

// Service converts the batch settings for a BatchingService.
func (b BatchingConfig) Service() messagepipeline.BatchingServiceConfig {
	return messagepipeline.BatchingServiceConfig{
		NumWorkers:    b.Workers,
		BatchSize:     b.Size,
		FlushInterval: b.FlushInterval,
	}
}
