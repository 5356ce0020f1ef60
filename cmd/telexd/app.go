package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/illmade-knight/go-telex/pkg/archive"
	"github.com/illmade-knight/go-telex/pkg/bqstore"
	"github.com/illmade-knight/go-telex/pkg/cache"
	"github.com/illmade-knight/go-telex/pkg/config"
	"github.com/illmade-knight/go-telex/pkg/dlq"
	"github.com/illmade-knight/go-telex/pkg/enrichment"
	"github.com/illmade-knight/go-telex/pkg/extractor"
	"github.com/illmade-knight/go-telex/pkg/icestore"
	"github.com/illmade-knight/go-telex/pkg/messagepipeline"
	"github.com/illmade-knight/go-telex/pkg/metrics"
	"github.com/illmade-knight/go-telex/pkg/microservice"
	"github.com/illmade-knight/go-telex/pkg/mqttconverter"
	"github.com/illmade-knight/go-telex/pkg/pipeline"
	"github.com/illmade-knight/go-telex/pkg/reference"
)

// service is anything with the consumer-style Start/Stop lifecycle.
type service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App owns every long-lived component of telexd.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	refs      *reference.Dataset
	archive   *archive.Archive
	processor *pipeline.Processor
	server    *microservice.BaseServer

	// sinks outlive the signal context and stop after every source.
	sinks   []service
	sources []service
	closers []io.Closer
}

func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{cfg: cfg, logger: logger, archive: archive.New()}
}

// buildCore loads reference data and the parse path. It needs no network
// unless the remote reference backend is configured.
func (a *App) buildCore(ctx context.Context) error {
	refs, err := a.openReference(ctx)
	if err != nil {
		return err
	}
	a.refs = refs

	var seen cache.PresenceCache[string, int64]
	if a.cfg.Reference.MissTracker == "redis" {
		rc := a.cfg.Reference.Remote.Redis
		rc.KeyPrefix += "miss:"
		rc.CacheTTL = a.cfg.Reference.MissTTL
		redisSeen, err := cache.NewRedisPresenceCache[string, int64](ctx, &rc, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closerFunc(redisSeen.Close))
		seen = redisSeen
	} else {
		seen = cache.NewInMemoryPresenceCache[string, int64](a.cfg.Reference.MissTTL)
	}

	engine, err := enrichment.NewEngine(refs, enrichment.NewMissTracker(seen, a.logger), a.logger)
	if err != nil {
		return err
	}
	queue, err := a.openDeadLetters(ctx)
	if err != nil {
		return err
	}
	a.processor, err = pipeline.NewProcessor(extractor.NewRouter(a.logger), engine, a.archive, a.logger,
		pipeline.WithMinLength(a.cfg.Pipeline.MinLength),
		pipeline.WithDeadLetters(queue))
	return err
}

func (a *App) openReference(ctx context.Context) (*reference.Dataset, error) {
	if a.cfg.Reference.Backend != config.BackendRemote {
		return reference.Load(a.cfg.Reference.Paths, a.logger).Dataset(), nil
	}
	fs, err := firestore.NewClient(ctx, a.cfg.Reference.Remote.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	a.closers = append(a.closers, fs)
	remote, err := reference.OpenRemote(ctx, a.cfg.Reference.Remote, fs, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, remote)
	return remote.Dataset(), nil
}

// openDeadLetters returns nil when no DLQ directory is configured; a nil
// queue drops letters after logging them.
func (a *App) openDeadLetters(ctx context.Context) (*dlq.Queue, error) {
	if a.cfg.Sinks.DLQDir == "" {
		return nil, nil
	}
	var opts []dlq.Option
	if topic := a.cfg.Sinks.DeadLetterTopic; topic != "" {
		client, err := pubsub.NewClient(ctx, a.cfg.Sinks.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub.NewClient: %w", err)
		}
		a.closers = append(a.closers, client)
		publisher, err := messagepipeline.NewGoogleSimplePublisher(ctx, client, topic, a.logger)
		if err != nil {
			return nil, err
		}
		a.sinks = append(a.sinks, stopOnly{publisher.Stop})
		opts = append(opts, dlq.WithPublisher(publisher))
	}
	return dlq.NewQueue(a.cfg.Sinks.DLQDir, a.logger, opts...)
}

// Initialize builds the sinks, sources and HTTP server.
func (a *App) Initialize(ctx context.Context) error {
	metrics.Register()
	if err := a.buildCore(ctx); err != nil {
		return err
	}
	if err := a.initSinks(ctx); err != nil {
		return fmt.Errorf("failed to initialize sinks: %w", err)
	}

	ingest := messagepipeline.NewChannelConsumer(a.cfg.Pipeline.IngestBuffer)
	if err := a.addIngest(ingest); err != nil {
		return err
	}
	if err := a.initSources(ctx); err != nil {
		return fmt.Errorf("failed to initialize sources: %w", err)
	}

	a.server = microservice.NewBaseServer(microservice.ServerConfig{
		Addr:         a.cfg.HTTP.Addr,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}, a.logger)
	api, err := microservice.NewTelexAPI(microservice.APIConfig{
		DefaultPageSize: a.cfg.HTTP.DefaultPageSize,
		MaxPageSize:     a.cfg.HTTP.MaxPageSize,
		MaxBodyBytes:    int64(a.cfg.Pipeline.MaxPayloadBytes),
	}, a.archive, ingest, a.refs, a.logger)
	if err != nil {
		return err
	}
	api.Register(a.server.Mux())
	return nil
}

func (a *App) addIngest(consumer messagepipeline.MessageConsumer) error {
	svc, err := pipeline.NewIngestService(pipeline.IngestConfig{
		MaxPayloadBytes: a.cfg.Pipeline.MaxPayloadBytes,
	}, consumer, a.processor, a.logger)
	if err != nil {
		return err
	}
	a.sources = append(a.sources, svc)
	return nil
}

func (a *App) initSources(ctx context.Context) error {
	src := a.cfg.Sources
	if src.File.Enabled {
		c, err := messagepipeline.NewFileTailConsumer(src.File.FileTailConfig, a.logger)
		if err != nil {
			return err
		}
		if err := a.addIngest(c); err != nil {
			return err
		}
	}
	if src.Pubsub.Enabled {
		var opts []option.ClientOption
		if src.Pubsub.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(src.Pubsub.CredentialsFile))
		}
		client, err := pubsub.NewClient(ctx, src.Pubsub.ProjectID, opts...)
		if err != nil {
			return fmt.Errorf("pubsub.NewClient: %w", err)
		}
		a.closers = append(a.closers, client)
		cfg := src.Pubsub.GooglePubsubConsumerConfig
		c, err := messagepipeline.NewGooglePubsubConsumer(&cfg, client, a.logger)
		if err != nil {
			return err
		}
		if err := a.addIngest(c); err != nil {
			return err
		}
	}
	if src.Kafka.Enabled {
		reader, err := messagepipeline.NewKafkaReader(src.Kafka.KafkaConsumerConfig)
		if err != nil {
			return err
		}
		if err := a.addIngest(messagepipeline.NewKafkaConsumer(reader, a.logger)); err != nil {
			return err
		}
	}
	if src.MQTT.Enabled {
		cfg := src.MQTT.MQTTClientConfig
		client, err := mqttconverter.NewPahoClient(&cfg, a.logger)
		if err != nil {
			return err
		}
		c, err := mqttconverter.NewMqttConsumer(client, &cfg, a.logger)
		if err != nil {
			return err
		}
		if err := a.addIngest(c); err != nil {
			return err
		}
	}
	if src.NATS.Enabled {
		conn, err := messagepipeline.ConnectNATS(src.NATS.NatsConsumerConfig, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closerFunc(func() error { conn.Close(); return nil }))
		c, err := messagepipeline.NewNatsConsumer(conn, src.NATS.NatsConsumerConfig, a.logger)
		if err != nil {
			return err
		}
		if err := a.addIngest(c); err != nil {
			return err
		}
	}
	return nil
}

// initSinks subscribes each enabled export to the archive. Sinks are started
// before sources so no appended entry is missed.
func (a *App) initSinks(ctx context.Context) error {
	sinks := a.cfg.Sinks
	if sinks.GCS.Enabled {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("storage.NewClient: %w", err)
		}
		a.closers = append(a.closers, client)
		uploader, err := icestore.NewGCSBatchUploader(icestore.NewGCSClientAdapter(client), sinks.GCS.GCSBatchUploaderConfig, a.logger)
		if err != nil {
			return err
		}
		feed := messagepipeline.NewChannelConsumer(sinks.Batch.Buffer)
		archive.Feed(a.archive, feed, a.logger)
		svc, err := icestore.NewIceStorageService(sinks.Batch.Service(), feed, uploader, a.cfg.Retry, a.logger)
		if err != nil {
			return err
		}
		a.sinks = append(a.sinks, svc)
	}
	if sinks.BigQuery.Enabled {
		bqCfg := sinks.BigQuery.BigQueryDatasetConfig
		client, err := bqstore.NewProductionBigQueryClient(ctx, bqCfg, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closerFunc(client.Close))
		inserter, err := bqstore.NewBigQueryInserter[bqstore.TelexRow](ctx, client, &bqCfg, a.logger)
		if err != nil {
			return err
		}
		feed := messagepipeline.NewChannelConsumer(sinks.Batch.Buffer)
		archive.Feed(a.archive, feed, a.logger)
		svc, err := bqstore.NewBigQueryService(sinks.Batch.Service(), feed, inserter, a.cfg.Retry, a.logger)
		if err != nil {
			return err
		}
		a.sinks = append(a.sinks, svc)
	}
	return nil
}

// Run starts every service and the HTTP server, then blocks until ctx ends
// and everything has shut down.
func (a *App) Run(ctx context.Context) error {
	if err := a.startServices(ctx); err != nil {
		return err
	}
	if err := a.server.Start(); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return a.stopServices(shutdownCtx)
	})
	return g.Wait()
}

// startServices starts the sinks on a context that ctx cannot cancel, then
// the sources on ctx. An export keeps draining its archive feed until
// stopServices stops it.
func (a *App) startServices(ctx context.Context) error {
	sinkCtx := context.WithoutCancel(ctx)
	for _, svc := range a.sinks {
		if err := svc.Start(sinkCtx); err != nil {
			return err
		}
	}
	for _, svc := range a.sources {
		if err := svc.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// stopServices stops the sources first, so every telex they archive still
// reaches the exports, then the sinks flush what the archive fed them.
func (a *App) stopServices(ctx context.Context) error {
	var errs []error
	for _, group := range [][]service{a.sources, a.sinks} {
		for i := len(group) - 1; i >= 0; i-- {
			if err := group[i].Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases clients. It is safe to call after a failed Initialize.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// stopOnly adapts a component that needs stopping but not starting.
type stopOnly struct {
	stop func(ctx context.Context) error
}

func (stopOnly) Start(context.Context) error      { return nil }
func (s stopOnly) Stop(ctx context.Context) error { return s.stop(ctx) }
