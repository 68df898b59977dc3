package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/djlord-it/careerhub/internal/analytics"
	"github.com/djlord-it/careerhub/internal/api"
	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/circuitbreaker"
	"github.com/djlord-it/careerhub/internal/config"
	"github.com/djlord-it/careerhub/internal/domain"
	"github.com/djlord-it/careerhub/internal/ingest"
	"github.com/djlord-it/careerhub/internal/logger"
	"github.com/djlord-it/careerhub/internal/metrics"
	"github.com/djlord-it/careerhub/internal/store/memory"
	"github.com/djlord-it/careerhub/internal/store/mongo"
	"github.com/djlord-it/careerhub/internal/store/postgres"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(exitRuntimeError)
	}

	// A missing .env file is fine; the environment wins over it.
	_ = godotenv.Load()

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "ingest":
		os.Exit(runIngest())
	case "import":
		os.Exit(runImport())
	case "validate":
		os.Exit(runValidate(os.Stdout, os.Stderr))
	case "config":
		os.Exit(runConfig(os.Stdout, os.Stderr))
	case "version":
		os.Exit(runVersion(os.Stdout))
	case "--help", "-h", "help":
		printUsage(os.Stdout)
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage(os.Stderr)
		os.Exit(exitRuntimeError)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `careerhub - job catalog ingestion and query service

Usage:
  careerhub <command>

Commands:
  serve      Start the HTTP API
  ingest     Build jobs.json and industries.json from the CSV sources
  import     Replace the store's collections with the ingest output
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  STORE_DRIVER              memory, mongo or postgres (default: "memory")
  SEED_FILE                 jobs.json loaded by the memory driver (optional)
  MONGO_URI                 MongoDB connection string (required for mongo)
  MONGO_DATABASE            MongoDB database name (default: "careerhub")
  DATABASE_URL              PostgreSQL connection string (required for postgres)
  DATA_DIR                  Directory holding the CSV sources (default: "data")
  OUTPUT_DIR                Directory receiving ingest output (default: "output")
  REDIS_ADDR                Redis address for lookup analytics (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080", or ":$PORT")

  STORE_OP_TIMEOUT          Per store operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  CIRCUIT_BREAKER_THRESHOLD Store faults before failing fast, 0 disables (default: "5")
  CIRCUIT_BREAKER_COOLDOWN  Open period before a probe is allowed (default: "30s")
  ANALYTICS_RETENTION       Lifetime of hourly lookup counters (default: "168h")
  RATE_LIMIT_RPS            Requests per second per client, 0 disables (default: "0")
  RATE_LIMIT_BURST          Burst size per client (default: "20")
  CORS_ALLOW_ORIGINS        Comma-separated origins or "*" (default: "*")
  IMPORT_LOCK_KEY           Advisory lock key shared by importers (postgres)

  LOG_LEVEL                 trace, debug, info, warn or error (default: "info")
  LOG_FORMAT                console or json (default: "console")`)
}

// loadConfig loads, validates and installs the global logger.
func loadConfig() (config.Config, zerolog.Logger, int) {
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return cfg, zerolog.Nop(), exitInvalidConfig
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return cfg, zerolog.Nop(), exitInvalidConfig
	}
	return cfg, logger.Get(), exitSuccess
}

func runServe() int {
	cfg, log, code := loadConfig()
	if code != exitSuccess {
		return code
	}
	logConfigWarnings(log, cfg)

	gin.SetMode(gin.ReleaseMode)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	st, err := openStore(startCtx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("careerhub: failed to open store")
		return exitRuntimeError
	}
	defer st.close()

	// Initialize metrics sink (optional)
	var sink metrics.Sink = metrics.NewNoopSink()
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		sink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Info().Int("port", cfg.MetricsPort).Str("path", cfg.MetricsPath).Msg("careerhub: metrics enabled")

		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.MetricsPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("careerhub: metrics server error")
			}
		}()
	}

	svc := catalog.NewService(st.store).
		WithOpTimeout(cfg.StoreOpTimeout).
		WithMetrics(sink).
		WithLogger(log)

	if cfg.CircuitBreakerThreshold > 0 {
		breaker := circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown).
			OnStateChange(func(key, state string) {
				sink.BreakerStateChanged(key, state)
				log.Warn().Str("key", key).Str("state", state).Msg("careerhub: circuit breaker state changed")
			})
		svc = svc.WithBreaker(breaker)
	}

	handler := api.NewHandler(svc).
		WithLogger(log).
		WithHealthChecker("store", st.store)

	// Wire analytics if Redis is configured
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		lookups := analytics.NewRedisSink(redisClient).
			WithRetention(cfg.AnalyticsRetention).
			WithFailureRecorder(sink).
			WithLogger(log)
		defer lookups.Wait()
		svc = svc.WithAnalytics(lookups)
		handler = handler.WithHealthChecker("redis", api.HealthCheckFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
		log.Info().Str("redis", cfg.RedisAddr).Msg("careerhub: analytics enabled")
	}

	router := api.NewRouter(handler, api.RouterOptions{
		Metrics:          sink,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.StoreDriver).Msg("careerhub: http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	code = exitSuccess
	select {
	case received := <-sig:
		log.Info().Str("signal", received.String()).Msg("careerhub: shutting down")
	case err := <-serveErr:
		log.Error().Err(err).Msg("careerhub: http server error")
		code = exitRuntimeError
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("careerhub: http server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("careerhub: metrics server shutdown error")
		}
	}

	log.Info().Msg("careerhub: stopped")
	return code
}

// openedStore pairs a catalog store with the teardown for its connection.
type openedStore struct {
	store catalog.Store
	close func()
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (*openedStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		if cfg.SeedFile == "" {
			return &openedStore{store: memory.New(), close: func() {}}, nil
		}
		s, err := memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("seed_file", cfg.SeedFile).Int("jobs", s.Len()).Msg("careerhub: memory store seeded")
		return &openedStore{store: s, close: func() {}}, nil

	case config.DriverMongo:
		s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(context.Background())
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return &openedStore{store: s, close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(ctx)
		}}, nil

	case config.DriverPostgres:
		db, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		s := postgres.New(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return &openedStore{store: s, close: func() { db.Close() }}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openPostgres(ctx context.Context, cfg config.Config, log zerolog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	log.Info().
		Int("max_open", cfg.DBMaxOpenConns).
		Int("max_idle", cfg.DBMaxIdleConns).
		Dur("max_lifetime", cfg.DBConnMaxLifetime).
		Msg("careerhub: db pool configured")

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// logConfigWarnings logs settings that are valid but likely unintended.
func logConfigWarnings(log zerolog.Logger, cfg config.Config) {
	if cfg.StoreDriver == config.DriverMemory {
		if cfg.SeedFile == "" {
			log.Warn().Msg("STORE_DRIVER=memory without SEED_FILE: the catalog starts empty and nothing persists")
		} else {
			log.Warn().Msg("STORE_DRIVER=memory: writes are lost on restart")
		}
	}
	if !cfg.MetricsEnabled {
		log.Info().Msg("METRICS_ENABLED=false: no request or store metrics are exported")
	}
	if cfg.CircuitBreakerThreshold == 0 {
		log.Warn().Msg("CIRCUIT_BREAKER_THRESHOLD=0: store faults are never short-circuited")
	}
	if cfg.RateLimitRPS == 0 {
		log.Info().Msg("RATE_LIMIT_RPS=0: per-client rate limiting disabled")
	}
	for _, o := range cfg.CORSAllowOrigins {
		if o == "*" {
			log.Warn().Msg("CORS_ALLOW_ORIGINS=*: any origin may call the API")
			break
		}
	}
}

func runIngest() int {
	cfg, log, code := loadConfig()
	if code != exitSuccess {
		return code
	}

	reg, sink := batchMetrics(cfg)
	start := time.Now()
	sum, err := ingest.Run(ingest.Options{DataDir: cfg.DataDir, OutDir: cfg.OutDir}, log)
	sink.IngestCompleted(sum.Jobs, sum.MissingIndustries, time.Since(start), err)
	writeBatchMetrics(log, cfg, reg, "ingest.prom")

	if err != nil {
		log.Error().Err(err).Msg("ingest: failed")
		return exitRuntimeError
	}
	log.Info().
		Int("jobs", sum.Jobs).
		Int("industries", sum.Industries).
		Int("missing_industries", sum.MissingIndustries).
		Str("first_job", sum.FirstJobTitle).
		Str("first_company", sum.FirstJobCompany).
		Str("first_industry", sum.FirstIndustry).
		Dur("took", time.Since(start)).
		Msg("ingest: complete")
	return exitSuccess
}

func runImport() int {
	cfg, log, code := loadConfig()
	if code != exitSuccess {
		return code
	}
	if cfg.StoreDriver == config.DriverMemory {
		fmt.Fprintln(os.Stderr, "import: STORE_DRIVER=memory has nothing to import into; set SEED_FILE to serve the ingest output")
		return exitInvalidConfig
	}

	jobs, industries, err := ingest.ReadOutput(cfg.OutDir)
	if err != nil {
		log.Error().Err(err).Str("dir", cfg.OutDir).Msg("import: cannot read ingest output")
		return exitRuntimeError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, sink := batchMetrics(cfg)
	start := time.Now()
	err = importInto(ctx, cfg, log, jobs, industries)
	sink.ImportCompleted(cfg.StoreDriver, len(jobs), time.Since(start), err)
	writeBatchMetrics(log, cfg, reg, "import.prom")

	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("import: failed")
		return exitRuntimeError
	}
	log.Info().
		Str("driver", cfg.StoreDriver).
		Int("jobs", len(jobs)).
		Int("industries", len(industries)).
		Dur("took", time.Since(start)).
		Msg("import: complete")
	return exitSuccess
}

func importInto(ctx context.Context, cfg config.Config, log zerolog.Logger, jobs []domain.Job, industries []domain.Industry) error {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer s.Close(context.Background())
		return s.ReplaceAll(ctx, jobs, industries)

	case config.DriverPostgres:
		db, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		lock, err := postgres.AcquireImportLock(ctx, db, cfg.ImportLockKey)
		if err != nil {
			return err
		}
		defer lock.Release(context.Background())

		s := postgres.New(db)
		if err := s.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if err := lock.Alive(ctx); err != nil {
			return fmt.Errorf("import lock lost: %w", err)
		}
		return s.ReplaceAll(ctx, jobs, industries)
	}
	return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// batchMetrics returns a private registry for one-shot commands. Nothing
// scrapes a batch run, so the registry is written to a node-exporter
// textfile when metrics are enabled.
func batchMetrics(cfg config.Config) (*prometheus.Registry, metrics.Sink) {
	if !cfg.MetricsEnabled {
		return nil, metrics.NewNoopSink()
	}
	reg := prometheus.NewRegistry()
	return reg, metrics.NewPrometheusSink(reg)
}

func writeBatchMetrics(log zerolog.Logger, cfg config.Config, reg *prometheus.Registry, name string) {
	if reg == nil {
		return
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		log.Warn().Err(err).Msg("metrics: cannot create output directory")
		return
	}
	path := filepath.Join(cfg.OutDir, name)
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("metrics: write textfile failed")
		return
	}
	log.Info().Str("path", path).Msg("metrics: textfile written")
}

func runValidate(stdout, stderr io.Writer) int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Fprintln(stdout, "configuration valid")
	return exitSuccess
}

func runConfig(stdout, stderr io.Writer) int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Fprintln(stdout, string(data))
	return exitSuccess
}

func runVersion(w io.Writer) int {
	fmt.Fprintf(w, "careerhub version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
