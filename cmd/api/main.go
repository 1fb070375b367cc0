package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-adorn/internal/app"
	"github.com/noah-isme/backend-adorn/internal/auth"
	"github.com/noah-isme/backend-adorn/internal/checkout"
	"github.com/noah-isme/backend-adorn/internal/common"
	"github.com/noah-isme/backend-adorn/internal/config"
	"github.com/noah-isme/backend-adorn/internal/coupon"
	"github.com/noah-isme/backend-adorn/internal/events"
	"github.com/noah-isme/backend-adorn/internal/health"
	"github.com/noah-isme/backend-adorn/internal/lock"
	"github.com/noah-isme/backend-adorn/internal/obs"
	"github.com/noah-isme/backend-adorn/internal/order"
	"github.com/noah-isme/backend-adorn/internal/payment"
	"github.com/noah-isme/backend-adorn/internal/ratelimit"
	"github.com/noah-isme/backend-adorn/internal/repo"
	"github.com/noah-isme/backend-adorn/internal/resilience"
	"github.com/noah-isme/backend-adorn/internal/security"
	"github.com/noah-isme/backend-adorn/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "adorn")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "adorn-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if envBool("MIGRATE_ON_START", false) {
		source := envOrDefault("MIGRATIONS_PATH", "file://migrations")
		m, err := migrate.New(source, strings.Replace(cfg.DatabaseURL, "postgres://", "pgx5://", 1))
		if err != nil {
			logger.Fatal().Err(err).Msg("open migrations")
		}
		if err := app.RunMigrations(m); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "adorn-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	products := repo.Products{Pool: pool}
	orders := repo.Orders{Pool: pool}
	wallets := repo.Wallets{Pool: pool}
	carts := repo.Carts{Pool: pool}
	coupons := repo.Coupons{Pool: pool}

	bus := &events.Bus{Store: repo.Events{Pool: pool}}

	couponSvc := &coupon.Service{Q: coupons, DefaultPerUserLimit: cfg.CouponPerUserLimit}
	walletSvc := &wallet.Service{Q: wallets}

	provider := payment.Razorpay{
		KeyID:         cfg.RazorpayKeyID,
		KeySecret:     cfg.RazorpayKeySecret,
		WebhookSecret: envOrDefault("RAZORPAY_WEBHOOK_SECRET", ""),
		BaseURL:       cfg.RazorpayBaseURL,
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("razorpay").WithLogger(logger),
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
			Timeout:     cfg.GatewayTimeout,
		},
	}
	initiator := &payment.Initiator{
		Provider: provider,
		KeyID:    cfg.RazorpayKeyID,
		Currency: cfg.CurrencyCode,
	}

	checkoutSvc := &checkout.Service{
		Products: products,
		Coupons:  couponSvc,
		Wallet:   walletSvc,
		Payments: initiator,
		Orders:   orders,
		Carts:    carts,
		Tasks:    checkout.TaskQueue{Client: taskClient, MaxRetry: cfg.SettleMaxRetry, Queue: cfg.SettleQueueName},
		Events:   bus,
		Locker:   &lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL:  cfg.CheckoutLockTTL,
		Validate: app.NewValidator(),
		Logger:   logger,

		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFlatFee:       cfg.ShippingFlatFee,
		CouponPerUserLimit:    int32(cfg.CouponPerUserLimit),
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	orderHandler := &order.Handler{Q: orders}

	webhookHandler := payment.Webhook{
		Provider:  provider,
		Orders:    orders,
		Replay:    redisClient,
		ReplayTTL: cfg.WebhookReplayTTL,
		Logger:    logger,
	}

	authMiddleware := auth.Middleware{Verifier: auth.Verifier{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
	}}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient},
		Config: ratelimit.Config{
			Key: func(r *http.Request) string {
				userID, _ := common.UserID(r.Context())
				if userID == "" {
					return "anon:" + r.RemoteAddr
				}
				return "checkout:" + userID
			},
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("checkout rate limit")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if globalLimiter, err := newGlobalLimiter(redisClient, cfg.APIRateLimit); err != nil {
		logger.Error().Err(err).Msg("initialise api rate limiter")
	} else if globalLimiter != nil {
		r.Use(limiterstdlib.NewMiddleware(globalLimiter).Handler)
	}

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.With(authMiddleware.RequireAuth, checkoutLimit.Middleware, idem.Middleware).
			Post("/checkout", checkoutHandler.Checkout)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{orderId}", orderHandler.Get)
		})

		v.Post("/webhooks/payment/razorpay", webhookHandler.Handle)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func newGlobalLimiter(rdb *redis.Client, formatted string) (*limiter.Limiter, error) {
	if strings.TrimSpace(formatted) == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store, err := app.NewLimiterStore(rdb)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
