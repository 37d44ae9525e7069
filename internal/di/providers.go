package di

import (
	"context"
	"fmt"
	"time"

	"TrendCast/internal/domain/models"
	"TrendCast/internal/domain/repository"
	"TrendCast/internal/handler/api"
	internalrepo "TrendCast/internal/repository"
	"TrendCast/internal/services/forecast"
	"TrendCast/internal/usecase"
	"TrendCast/pkg/cache"
	pkgch "TrendCast/pkg/clickhouse"
	"TrendCast/pkg/config"
	xhttp "TrendCast/pkg/http"
	pkgkafka "TrendCast/pkg/kafka"
	applogger "TrendCast/pkg/logger"
	"TrendCast/pkg/metrics"
	"TrendCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideEngine creates the forecast engine from the forecast and goal sections.
func ProvideEngine(cfg *config.Config, l *applogger.Logger) *forecast.Engine {
	return forecast.New(
		forecast.WithHorizon(cfg.Forecast.HorizonSteps),
		forecast.WithStep(cfg.Forecast.Step),
		forecast.WithUnit(models.TimeUnit(cfg.Forecast.OutputUnit)),
		forecast.WithSlumpWeighting(cfg.Forecast.Weighted, cfg.Forecast.SlumpMargin),
		forecast.WithImprovement(cfg.Goal.Improvement),
		forecast.WithWorkers(cfg.Forecast.Workers),
		forecast.WithLogger(l.With(applogger.String("component", "engine"))),
	)
}

// ProvideCache creates the result cache: memory only, or memory in front of Redis. It returns nil
// when caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryTTL(cfg.Cache.TTL),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(time.Minute),
	), nil
}

// ProvideClickHouseClient creates a ClickHouse client and the archive schema. It returns nil when
// the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}, internalrepo.ArchiveSchema...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideResultArchive wraps the ClickHouse client, or returns nil without one.
func ProvideResultArchive(ch *pkgch.Client, l *applogger.Logger) repository.ResultArchive {
	if ch == nil {
		return nil
	}
	archive := internalrepo.NewCHResultArchive(ch)
	archive.SetLogger(l.With(applogger.String("component", "archive")))
	return archive
}

// ProvideKafkaProducer creates a Kafka producer, or returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher creates the result topic publisher, or returns nil without a producer.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or returns nil when Kafka is
// disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook{Now: time.Now},
		pkgkafka.LoggingHook{Log: l},
	))
	return consumer, nil
}

// ProvideTrendService creates the trend use case with whichever collaborators are configured.
func ProvideTrendService(
	cfg *config.Config,
	engine *forecast.Engine,
	c cache.Service,
	pub repository.ResultPublisher,
	archive repository.ResultArchive,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TrendService {
	opts := []usecase.Option{
		usecase.WithMetrics(m),
		usecase.WithLogger(l.With(applogger.String("component", "trend"))),
		usecase.WithRejectSoleShortGroup(cfg.Forecast.RejectSoleShortGroup),
	}
	if c != nil {
		opts = append(opts, usecase.WithCache(c, cfg.Cache.TTL, cacheVersion(cfg)))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub, cfg.Kafka.PublishHTTPResults))
	}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	return usecase.NewTrendService(engine, opts...)
}

// cacheVersion changes whenever a setting that affects engine output changes.
func cacheVersion(cfg *config.Config) string {
	f := cfg.Forecast
	return fmt.Sprintf("h%d-s%d-%s-w%t-m%g-i%g", f.HorizonSteps, int64(f.Step.Seconds()), f.OutputUnit,
		f.Weighted, f.SlumpMargin, cfg.Goal.Improvement)
}

// ProvideKafkaRequestsHandler creates the handler for the request topic, or returns nil when Kafka
// is disabled.
func ProvideKafkaRequestsHandler(cfg *config.Config, svc *usecase.TrendService, l *applogger.Logger) *usecase.KafkaRequestsHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	return usecase.NewKafkaRequestsHandler(cfg.Kafka.RequestTopic, svc, l)
}

// ProvideHTTPHandler registers the HTTP, WebSocket and probe routes.
func ProvideHTTPHandler(
	l *applogger.Logger,
	svc *usecase.TrendService,
	c cache.Service,
	archive repository.ResultArchive,
) xhttp.Handler {
	health := api.NewHealthHandler(l)
	if c != nil {
		health.AddCheck("cache", c.Ping)
	}
	if archive != nil {
		health.AddCheck("archive", archive.Health)
	}
	return xhttp.Handlers{
		api.NewTrendEchoHandler(l, svc),
		api.NewForecastStreamHandler(l, svc),
		health,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRequestsHandler,
	c cache.Service,
	pub repository.ResultPublisher,
	archive repository.ResultArchive,
) *server.App {
	var resources []server.Resource
	if archive != nil {
		resources = append(resources, server.Resource{Name: "clickhouse", Closer: archive})
	}
	if c != nil {
		resources = append(resources, server.Resource{Name: "cache", Closer: c})
	}
	// Resources close in reverse order, so the producer flushes first.
	if pub != nil {
		resources = append(resources, server.Resource{Name: "kafka producer", Closer: pub})
	}

	var msgHandler pkgkafka.MessageHandler
	if kh != nil {
		msgHandler = kh
	}
	return server.New(cfg, l, handler, consumer, msgHandler, resources...)
}
