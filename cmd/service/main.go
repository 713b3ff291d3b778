package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"demo/ordercrm/internal/config"
	"demo/ordercrm/internal/events"
	"demo/ordercrm/internal/httpapi"
	"demo/ordercrm/internal/logging"
	"demo/ordercrm/internal/metrics"
	"demo/ordercrm/internal/service"
	"demo/ordercrm/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeRepo()

	reg := metrics.NewRegistry()
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(reg)}

	brokers := cfg.Brokers()
	if len(brokers) > 0 {
		pub := events.NewKafkaPublisher(brokers, cfg.KafkaEventsTopic, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close publisher", zap.Error(err))
			}
		}()
		opts = append(opts, service.WithPublisher(pub))
	}
	svc := service.New(repo, opts...)

	if len(brokers) > 0 {
		consumer := events.NewConsumer(events.ConsumerConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaWebhookTopic,
			GroupID: cfg.KafkaGroup,
		}, func(ctx context.Context, v []byte) error {
			_, err := svc.Ingest(ctx, "kafka", v)
			return err
		}, logger)
		// invalid payloads are committed and skipped
		consumer.Permanent = func(err error) bool { return errors.Is(err, service.ErrInvalidPayload) }
		defer consumer.Close()
		go consumer.Run(ctx)
		logger.Info("kafka consumer started", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaWebhookTopic))
	}

	h := httpapi.New(svc, httpapi.Options{
		ServiceName: cfg.ServiceName,
		ImageURL:    cfg.ImagePlaceholderURL,
		Logger:      logger,
		Metrics:     reg,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		logger.Info("http: listening", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye")
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Repository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := store.Migrate(cfg.DBDSN); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres connected")
		return store.NewPG(pool), pool.Close, nil
	case config.BackendMongo:
		m, err := store.NewMongo(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("mongo connected", zap.String("db", cfg.MongoDB))
		return m, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.Close(cctx)
		}, nil
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}
}
