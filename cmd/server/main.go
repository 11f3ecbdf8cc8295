package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/pawpulse/internal/adapter/httpserver"
	"github.com/pscheid92/pawpulse/internal/adapter/identity"
	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/adapter/postgres"
	"github.com/pscheid92/pawpulse/internal/adapter/redis"
	"github.com/pscheid92/pawpulse/internal/app"
	"github.com/pscheid92/pawpulse/internal/domain"
	"github.com/pscheid92/pawpulse/internal/platform/config"
	"github.com/pscheid92/pawpulse/internal/platform/logging"
	"github.com/pscheid92/pawpulse/internal/platform/version"
	"github.com/pscheid92/pawpulse/internal/realtime"
)

const (
	sendBuffer           = 32
	circuitBreakerDelay  = 5 * time.Second
	profileEvictInterval = time.Minute
	reminderLeaseName    = "reminders"
	shutdownTimeout      = 10 * time.Second
	relayReadyTimeout    = 10 * time.Second
	databaseSetupTimeout = 30 * time.Second
	redisConnectTimeout  = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, tracer *postgres.QueryTracer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), databaseSetupTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis returns nil when REDIS_URL is unset; the service then runs as a
// single instance with profiles read straight from PostgreSQL.
func setupRedis(cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, running without cross-instance fan-out")
		return nil
	}

	redisMetrics := metrics.NewRedisMetrics(reg)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL,
		redis.NewMetricsHook(redisMetrics),
		redis.NewCircuitBreakerHook(circuitBreakerDelay, redisMetrics),
	)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "pawpulse"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

// startRelay subscribes to deliveries from other instances and waits until
// the subscription is live so no dispatch is missed after startup.
func startRelay(ctx context.Context, wg *sync.WaitGroup, relay *redis.Relay, dispatcher *realtime.Dispatcher) {
	ready := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := relay.Start(ctx, dispatcher.DeliverRelayed, ready); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Delivery relay stopped", "error", err)
		}
	}()

	select {
	case <-ready:
	case <-time.After(relayReadyTimeout):
		slog.Error("Delivery relay did not become ready")
		os.Exit(1)
	}
}

func runGracefulShutdown(srv *httpserver.Server, registry *realtime.Registry, dispatcher *realtime.Dispatcher, stopBackground context.CancelFunc, background *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Live sockets are hijacked and not tracked by the HTTP server.
		if err := registry.Close(shutdownCtx); err != nil {
			slog.Error("Realtime registry shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			slog.Error("Dispatcher relay shutdown error", "error", err)
		}

		stopBackground()
		background.Wait()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	instance := instanceID()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String(), "instance", instance)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	realtimeMetrics := metrics.NewRealtimeMetrics(reg)
	notificationMetrics := metrics.NewNotificationMetrics(reg)
	cacheMetrics := metrics.NewCacheMetrics(reg)
	dbMetrics := metrics.NewDatabaseMetrics(reg)

	pool := setupDB(cfg, postgres.NewQueryTracer(dbMetrics, clock))
	defer pool.Close()

	redisClient := setupRedis(cfg, reg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	var background sync.WaitGroup

	profileRepo := postgres.NewProfileRepo(pool)
	repos := app.Repositories{
		Profiles:      profileRepo,
		Pets:          postgres.NewPetRepo(pool),
		Appointments:  postgres.NewAppointmentRepo(pool),
		Articles:      postgres.NewArticleRepo(pool),
		Notifications: postgres.NewNotificationRepo(pool),
	}

	// Pass nil interfaces explicitly to avoid typed-nil values.
	var (
		profiles     domain.ProfileSource = profileRepo
		invalidator  domain.ProfileCacheInvalidator
		reminderLock domain.Lease
		dispatchOpts []realtime.DispatcherOption
		relay        *redis.Relay
		directory    domain.InstanceDirectory
	)
	if redisClient != nil {
		cache := redis.NewProfileCache(redisClient, profileRepo, cfg.ProfileCacheTTL, clock, cacheMetrics)
		profiles, invalidator = cache, cache

		background.Add(2)
		go func() { defer background.Done(); cache.StartInvalidationListener(bgCtx) }()
		go func() { defer background.Done(); cache.StartEvictionTimer(bgCtx, profileEvictInterval) }()

		relay = redis.NewRelay(redisClient)
		dispatchOpts = append(dispatchOpts, realtime.WithRelay(relay, instance))
		reminderLock = redis.NewLease(redisClient, reminderLeaseName, instance, 3*cfg.ReminderInterval)
	}

	verifier := identity.NewJWTVerifier(cfg.SupabaseJWTSecret, cfg.SupabaseJWTAudience, cfg.SupabaseJWTIssuer, clock)
	authenticator := identity.NewAuthenticator(verifier, profiles)

	dispatcher := realtime.NewDispatcher(realtimeMetrics, dispatchOpts...)
	registry := realtime.NewRegistry(authenticator, realtime.Options{
		Heartbeat: realtime.Heartbeat{
			PingInterval: cfg.WSPingInterval,
			PongTimeout:  cfg.WSPongTimeout,
		},
		MaxConnections: cfg.MaxWebSocketConnections,
		SendBuffer:     sendBuffer,
		CheckOrigin:    realtime.NewCheckOrigin(cfg.AllowedOrigins, !cfg.IsProduction()),
	}, clock, realtimeMetrics)
	dispatcher.Bind(registry)

	if relay != nil {
		startRelay(bgCtx, &background, relay, dispatcher)

		instanceRegistry := redis.NewInstanceRegistry(redisClient, instance, version.Get().String(), cfg.InstanceHeartbeat, dispatcher, clock)
		directory = instanceRegistry
		background.Add(1)
		go func() { defer background.Done(); instanceRegistry.Start(bgCtx) }()
	}

	appSvc := app.NewService(repos, dispatcher, invalidator, clock, notificationMetrics)

	reminders := app.NewReminderTicker(appSvc, reminderLock, cfg.ReminderInterval, cfg.ReminderLeadTime)
	background.Add(1)
	go func() { defer background.Done(); reminders.Run(bgCtx) }()

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	srv := httpserver.NewServer(cfg, appSvc, authenticator, httpserver.Realtime{
		Socket:      registry,
		Connections: dispatcher,
		Instances:   directory,
	}, healthChecks, metrics.Handler(reg), httpMetrics)

	done := runGracefulShutdown(srv, registry, dispatcher, stopBackground, &background)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
