package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"dispatcher/internal/config"
	"dispatcher/internal/constants"
	"dispatcher/internal/correlation"
	"dispatcher/internal/dispatch"
	"dispatcher/internal/dispatch/wpswatch"
	"dispatcher/internal/events"
	"dispatcher/internal/logger"
	"dispatcher/internal/pipeline"
	"dispatcher/internal/portal"
	"dispatcher/internal/push"
	"dispatcher/internal/ratelimit"
	"dispatcher/internal/refdata"
	"dispatcher/internal/storage"
	"dispatcher/pkg/bootstrap"
	"dispatcher/pkg/health"
	"dispatcher/pkg/logging"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/middleware"
	pushlimit "dispatcher/pkg/ratelimit"
	"dispatcher/pkg/models"
	"dispatcher/pkg/tracing"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	blobs          storage.BlobStore
	router         *pipeline.Router
	throttle       *pushlimit.Throttle
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.redis = rdb

	blobs, err := a.dbConnector.InitStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.blobs = blobs

	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	metrics.RegisterDispatcherMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.router = a.buildPipeline()
	a.initHTTPServer()
	return nil
}

func (a *App) buildPipeline() *pipeline.Router {
	cfg := a.Config
	httpClient := bootstrap.NewHTTPClient(cfg.Dispatcher.RequestConnectTimeout, cfg.Dispatcher.RequestReadTimeout)

	var portalClient portal.Portal = portal.NewClient(cfg.Portal.AdminEndpoint, cfg.Portal.APIEndpoint, cfg.Portal.AuthToken, httpClient)
	portalClient = portal.NewCircuitBreakerClient(portalClient, cfg.CircuitBreaker)

	policy := refdata.DefaultPolicy()
	if cfg.Portal.Retry.MaxAttempts > 0 {
		policy = cfg.Portal.Retry.Policy()
	}
	resolver := refdata.NewResolver(a.redis, portalClient, cfg.Cache.ConfigTTL(), policy, a.Logger)

	limiter := ratelimit.NewLimiter(a.redis, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), a.Logger)
	store := correlation.NewStore(a.redis, cfg.Cache.CorrelationKeyPrefix, cfg.Cache.CorrelationTTL())

	deleteFiles := cfg.Dispatcher.DeleteFilesAfterDelivery
	registry := dispatch.NewRegistry()
	registry.Register(models.StreamCameraTrap, wpswatch.NewCameraTrapAdapter(httpClient, a.blobs, deleteFiles, a.Logger))
	registry.Register(models.StreamAttachment, wpswatch.NewImageAdapter(httpClient, a.blobs, deleteFiles, a.Logger))
	executor := dispatch.NewExecutor(registry, limiter, a.Logger)

	emitter := events.NewEmitter(a.Producer, cfg.Topics.DispatcherEvents, events.DefaultPolicy(), a.Logger)

	eventRouter := pipeline.NewEventRouter(a.Logger)
	pipeline.NewWPSWatchHandlers(resolver, store, executor, emitter, a.Logger).Register(eventRouter)

	router := pipeline.NewRouter(pipeline.NewFreshnessGate(cfg.Dispatcher.MaxEventAge()), a.DeadLetter, a.Logger)
	router.Handle(models.GundiV1, pipeline.NewLegacyProcessor(resolver, executor, a.Logger))
	router.Handle(models.GundiV2, eventRouter)
	return router
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(a.Logger),
		tracing.GinMiddleware(constants.ServiceName, healthPath, metricsPath, a.Config.Push.Path),
		middleware.ContextMiddleware(constants.ServiceName),
		middleware.LoggerMiddleware(a.Logger, healthPath, metricsPath, a.Config.Push.Path),
	)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	healthRegistry.RegisterOptional(health.NewPingChecker("storage", a.blobs))

	engine.GET(healthPath, func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})
	engine.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	if a.Config.Push.Enabled {
		a.throttle = pushlimit.NewThrottle(pushlimit.FromPushConfig(a.Config.Push))
		pushRoutes := engine.Group("", a.throttle.Middleware())
		push.NewHandler(a.router, a.Logger).RegisterRoutes(pushRoutes, a.Config.Push.Path)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      engine,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port, "push_enabled", a.Config.Push.Enabled)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.throttle != nil {
		g.Go(func() error {
			a.throttle.Run(gCtx)
			return nil
		})
	}

	if a.Consumer != nil {
		inputTopic := a.Config.Broker.Kafka.InputTopic
		g.Go(func() error {
			consumerCtx := logging.WithServiceName(gCtx, constants.ServiceName)
			a.Logger.InfowCtx(consumerCtx, "Starting input consumer", "topic", inputTopic)
			return a.Consumer.Consume(gCtx, inputTopic, a.handleMessage)
		})
	}

	return g.Wait()
}

// handleMessage adapts the pipeline to the consumer. Returned errors are
// retryable; the consumer retries them and dead-letters when exhausted.
func (a *App) handleMessage(ctx context.Context, msg models.Message) error {
	result, err := a.router.Process(ctx, msg)
	if err != nil {
		return err
	}
	a.Logger.DebugwCtx(ctx, "Message handled", "status", result.Status, "reason", result.Reason)
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down dispatcher service")

	// The HTTP server is stopped by Run when its context ends.
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redis)...)

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
