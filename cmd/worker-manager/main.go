// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"notification-queue/internal/api"
	"notification-queue/internal/common/camunda"
	"notification-queue/internal/common/config"
	"notification-queue/internal/common/database"
	commonhttp "notification-queue/internal/common/http"
	"notification-queue/internal/common/logger"
	"notification-queue/internal/common/observability"
	"notification-queue/internal/delivery"
	"notification-queue/internal/dispatch"
	"notification-queue/internal/lifecycle"
	"notification-queue/internal/notifications"
	"notification-queue/internal/queue"
	"notification-queue/internal/render"
	"notification-queue/internal/templates"

	nc "notification-queue/internal/workers/queue/notification-create"
	qc "notification-queue/internal/workers/queue/queue-cancel"
	qcl "notification-queue/internal/workers/queue/queue-cleanup"
	qg "notification-queue/internal/workers/queue/queue-generate"
	qp "notification-queue/internal/workers/queue/queue-process"
	qr "notification-queue/internal/workers/queue/queue-reprocess"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification queue",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("notification-queue")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := database.Migrate(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Stores ---
	queueStore := queue.NewPostgresStore(pg.DB)
	notificationStore := notifications.NewPostgresStore(pg.DB)
	templateStore := templates.NewCachedStore(
		templates.NewPostgresStore(pg.DB),
		rdb.Client,
		cfg.Cache.LocalTTL,
		cfg.Cache.RedisTTL,
		log,
	)

	// --- Rendering and planning ---
	renderer, err := render.NewRenderer(render.Config{
		DefaultTimezone: cfg.Queue.DefaultTimezone,
		StaleWindow:     cfg.Queue.StaleWindow,
	}, render.NewMJMLConverter(cfg.Queue.MinifyMarkup))
	if err != nil {
		zapLog.Fatal("renderer init failed", zap.Error(err))
	}

	planner := dispatch.NewPlanner(dispatch.Config{
		CancelWindowMonths: cfg.Queue.CancelWindowMonths,
		Concurrency:        cfg.Queue.Concurrency,
	}, templateStore, queueStore, notificationStore, renderer, log)

	lifecycleSvc := lifecycle.NewService(cfg.Queue.CancelWindowMonths, queueStore, templateStore, renderer, log)

	// --- Delivery ---
	factory, err := delivery.NewTransportFactory(cfg.Delivery.Email)
	if err != nil {
		zapLog.Fatal("email transport config invalid", zap.Error(err))
	}
	pool, err := delivery.NewDomainPool(cfg.Delivery.Email.DomainSettings, factory)
	if err != nil {
		zapLog.Fatal("domain settings invalid", zap.Error(err))
	}

	inAppHTTP := commonhttp.NewClient(config.GetDuration(cfg.Delivery.InApp.Timeout))
	fetchHTTP := commonhttp.NewClient(30 * time.Second)

	processor := delivery.NewProcessor(delivery.Config{
		BatchSize:          cfg.Queue.BatchSize,
		Concurrency:        cfg.Queue.Concurrency,
		BaseURL:            cfg.Queue.BaseURL,
		PlaceholderPattern: cfg.Queue.PlaceholderPattern,
		ForwardTo:          cfg.Delivery.ForwardTo,
	},
		queueStore,
		pool,
		delivery.NewInAppClient(inAppHTTP, cfg.Delivery.InApp.URL, cfg.Delivery.InApp.Headers),
		delivery.NewResolver(fetchHTTP, 4),
		obs,
		log,
	)

	// --- Workers ---
	workers := startWorkers(cfg, zeebe.GetClient(), obs, zapLog, log, planner, lifecycleSvc, processor)

	// --- HTTP API ---
	server := api.NewServer(api.Dependencies{
		Planner:   planner,
		Lifecycle: lifecycleSvc,
		Queue:     queueStore,
		Templates: templateStore,
		Ready: map[string]api.ReadyCheck{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
			"zeebe":    zeebe.HealthCheck,
		},
		Logger: log,
	})
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:     server.Router(),
		ReadTimeout: config.GetDuration(cfg.HTTP.ReadTimeout),
	}
	go func() {
		zapLog.Info("HTTP API listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP API failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP API", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Notification queue stopped gracefully")
}

// startWorkers opens one job worker per enabled queue task type.
func startWorkers(
	cfg *config.Config,
	client zbc.Client,
	obs *observability.Observability,
	zapLog *zap.Logger,
	log logger.Logger,
	planner *dispatch.Planner,
	lifecycleSvc *lifecycle.Service,
	processor *delivery.Processor,
) []*camunda.CamundaWorker {
	var workers []*camunda.CamundaWorker
	open := func(taskType string, enabled bool, maxJobs int, timeout time.Duration, handler camunda.JobHandler, err error) {
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		if !enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		w := camunda.NewWorker(client, taskType, camunda.WorkerOptions{MaxJobsActive: maxJobs, Timeout: timeout}, handler, obs, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	ncCfg := nc.LoadConfig(cfg)
	ncHandler, err := nc.NewHandler(nc.HandlerOptions{Config: ncCfg, Creator: planner, Logger: log})
	open(nc.TaskType, ncCfg.Enabled, ncCfg.MaxJobsActive, ncCfg.Timeout, ncHandler, err)

	qgCfg := qg.LoadConfig(cfg)
	qgHandler, err := qg.NewHandler(qg.HandlerOptions{Config: qgCfg, Generator: planner, Logger: log})
	open(qg.TaskType, qgCfg.Enabled, qgCfg.MaxJobsActive, qgCfg.Timeout, qgHandler, err)

	qpCfg := qp.LoadConfig(cfg)
	qpHandler, err := qp.NewHandler(qp.HandlerOptions{Config: qpCfg, Runner: processor, Logger: log})
	open(qp.TaskType, qpCfg.Enabled, qpCfg.MaxJobsActive, qpCfg.Timeout, qpHandler, err)

	qcCfg := qc.LoadConfig(cfg)
	qcHandler, err := qc.NewHandler(qc.HandlerOptions{Config: qcCfg, Canceller: lifecycleSvc, Logger: log})
	open(qc.TaskType, qcCfg.Enabled, qcCfg.MaxJobsActive, qcCfg.Timeout, qcHandler, err)

	qclCfg := qcl.LoadConfig(cfg)
	qclHandler, err := qcl.NewHandler(qcl.HandlerOptions{Config: qclCfg, Cleaner: lifecycleSvc, Logger: log})
	open(qcl.TaskType, qclCfg.Enabled, qclCfg.MaxJobsActive, qclCfg.Timeout, qclHandler, err)

	qrCfg := qr.LoadConfig(cfg)
	qrHandler, err := qr.NewHandler(qr.HandlerOptions{Config: qrCfg, Reprocessor: lifecycleSvc, Logger: log})
	open(qr.TaskType, qrCfg.Enabled, qrCfg.MaxJobsActive, qrCfg.Timeout, qrHandler, err)

	zapLog.Info("Queue workers registered", zap.Int("count", len(workers)))
	return workers
}
