package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TELEX_HTTP_ADDR.
const EnvPrefix = "TELEX"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.default_page_size", 20)
	v.SetDefault("http.max_page_size", 500)

	v.SetDefault("pipeline.min_length", 3)
	v.SetDefault("pipeline.max_payload_bytes", 64*1024)
	v.SetDefault("pipeline.ingest_buffer", 100)

	v.SetDefault("reference.backend", BackendLocal)
	v.SetDefault("reference.paths.airlines", "data/airlines.json")
	v.SetDefault("reference.paths.airports", "data/airports.json")
	v.SetDefault("reference.paths.aircraft", "data/aircraft.json")
	v.SetDefault("reference.paths.countries", "data/countries.json")
	v.SetDefault("reference.miss_tracker", "memory")
	v.SetDefault("reference.miss_ttl", 24*time.Hour)
	v.SetDefault("reference.remote.project_id", "")
	v.SetDefault("reference.remote.collections.airlines", "airlines")
	v.SetDefault("reference.remote.collections.airports", "airports")
	v.SetDefault("reference.remote.collections.aircraft", "aircraft")
	v.SetDefault("reference.remote.collections.countries", "countries")
	v.SetDefault("reference.remote.lru_size", 1000)
	v.SetDefault("reference.remote.redis.addr", "")
	v.SetDefault("reference.remote.redis.password", "")
	v.SetDefault("reference.remote.redis.db", 0)
	v.SetDefault("reference.remote.redis.cache_ttl", 24*time.Hour)
	v.SetDefault("reference.remote.redis.key_prefix", "telex:ref:")

	v.SetDefault("sources.file.enabled", false)
	v.SetDefault("sources.file.path", "")
	v.SetDefault("sources.file.poll_interval", time.Second)
	v.SetDefault("sources.file.replay", false)

	v.SetDefault("sources.pubsub.enabled", false)
	v.SetDefault("sources.pubsub.project_id", "")
	v.SetDefault("sources.pubsub.subscription_id", "")
	v.SetDefault("sources.pubsub.credentials_file", "")
	v.SetDefault("sources.pubsub.max_outstanding_messages", 1000)
	v.SetDefault("sources.pubsub.num_goroutines", 10)

	v.SetDefault("sources.kafka.enabled", false)
	v.SetDefault("sources.kafka.brokers", []string{})
	v.SetDefault("sources.kafka.topic", "")
	v.SetDefault("sources.kafka.group_id", "telexd")

	v.SetDefault("sources.mqtt.enabled", false)
	v.SetDefault("sources.mqtt.broker_url", "")
	v.SetDefault("sources.mqtt.topics", []string{})
	v.SetDefault("sources.mqtt.qos", 1)
	v.SetDefault("sources.mqtt.client_id_prefix", "telexd-")
	v.SetDefault("sources.mqtt.allow_public_broker", false)
	v.SetDefault("sources.mqtt.username", "")
	v.SetDefault("sources.mqtt.password", "")
	v.SetDefault("sources.mqtt.keep_alive", 60*time.Second)
	v.SetDefault("sources.mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("sources.mqtt.reconnect_wait_max", 120*time.Second)
	v.SetDefault("sources.mqtt.ca_cert_file", "")
	v.SetDefault("sources.mqtt.client_cert_file", "")
	v.SetDefault("sources.mqtt.client_key_file", "")
	v.SetDefault("sources.mqtt.insecure_skip_verify", false)

	v.SetDefault("sources.nats.enabled", false)
	v.SetDefault("sources.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("sources.nats.subject", "telex.in")
	v.SetDefault("sources.nats.queue", "")
	v.SetDefault("sources.nats.name", "telexd")

	v.SetDefault("sinks.dlq_dir", "dlq")
	v.SetDefault("sinks.dead_letter_topic", "")
	v.SetDefault("sinks.project_id", "")
	v.SetDefault("sinks.gcs.enabled", false)
	v.SetDefault("sinks.gcs.bucket", "")
	v.SetDefault("sinks.gcs.object_prefix", "telex")
	v.SetDefault("sinks.bigquery.enabled", false)
	v.SetDefault("sinks.bigquery.project_id", "")
	v.SetDefault("sinks.bigquery.dataset_id", "")
	v.SetDefault("sinks.bigquery.table_id", "telexes")
	v.SetDefault("sinks.bigquery.credentials_file", "")
	v.SetDefault("sinks.batch.workers", 2)
	v.SetDefault("sinks.batch.size", 100)
	v.SetDefault("sinks.batch.flush_interval", 30*time.Second)
	v.SetDefault("sinks.batch.buffer", 1000)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("retry.max_interval", 10*time.Second)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_elapsed_time", time.Minute)
}

// Load reads configFile when it is not empty, applies TELEX_ environment
// overrides on top of the defaults and validates the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
