package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	if c.HTTP.Addr == "" {
		add("http.addr", "must not be empty")
	}
	if c.HTTP.DefaultPageSize < 1 || c.HTTP.MaxPageSize < c.HTTP.DefaultPageSize {
		add("http.default_page_size", "must be between 1 and max_page_size (%d), got %d", c.HTTP.MaxPageSize, c.HTTP.DefaultPageSize)
	}
	if c.Pipeline.MinLength < 1 {
		add("pipeline.min_length", "must be positive, got %d", c.Pipeline.MinLength)
	}
	if c.Pipeline.MaxPayloadBytes < 0 {
		add("pipeline.max_payload_bytes", "must not be negative")
	}

	switch c.Reference.Backend {
	case BackendLocal:
	case BackendRemote:
		if c.Reference.Remote.ProjectID == "" {
			add("reference.remote.project_id", "required for the remote backend")
		}
	default:
		add("reference.backend", "must be %q or %q, got %q", BackendLocal, BackendRemote, c.Reference.Backend)
	}
	switch c.Reference.MissTracker {
	case "memory":
	case "redis":
		if c.Reference.Remote.Redis.Addr == "" {
			add("reference.remote.redis.addr", "required when miss_tracker is redis")
		}
	default:
		add("reference.miss_tracker", "must be memory or redis, got %q", c.Reference.MissTracker)
	}

	s := c.Sources
	if s.File.Enabled && s.File.Path == "" {
		add("sources.file.path", "required when the file source is enabled")
	}
	if s.Pubsub.Enabled && (s.Pubsub.ProjectID == "" || s.Pubsub.SubscriptionID == "") {
		add("sources.pubsub", "project_id and subscription_id are required")
	}
	if s.Kafka.Enabled && (len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "") {
		add("sources.kafka", "brokers and topic are required")
	}
	if s.MQTT.Enabled {
		if err := s.MQTT.MQTTClientConfig.Validate(); err != nil {
			add("sources.mqtt", "%v", err)
		}
	}
	if s.NATS.Enabled && (s.NATS.URL == "" || s.NATS.Subject == "") {
		add("sources.nats", "url and subject are required")
	}

	if c.Sinks.DeadLetterTopic != "" && c.Sinks.ProjectID == "" {
		add("sinks.project_id", "required when dead_letter_topic is set")
	}
	if c.Sinks.GCS.Enabled && c.Sinks.GCS.BucketName == "" {
		add("sinks.gcs.bucket", "required when the GCS sink is enabled")
	}
	if c.Sinks.BigQuery.Enabled && (c.Sinks.BigQuery.ProjectID == "" || c.Sinks.BigQuery.DatasetID == "" || c.Sinks.BigQuery.TableID == "") {
		add("sinks.bigquery", "project_id, dataset_id and table_id are required")
	}
	if c.Retry.MaxAttempts < 1 {
		add("retry.max_attempts", "must be positive, got %d", c.Retry.MaxAttempts)
	}

	return errors.Join(errs...)
}
