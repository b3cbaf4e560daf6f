package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shopmanager/shopmanager/internal/app"
	"github.com/shopmanager/shopmanager/internal/audit"
	audithttp "github.com/shopmanager/shopmanager/internal/audit/http"
	"github.com/shopmanager/shopmanager/internal/auth"
	"github.com/shopmanager/shopmanager/internal/dashboard"
	"github.com/shopmanager/shopmanager/internal/ledger"
	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/observability"
	"github.com/shopmanager/shopmanager/internal/payments"
	"github.com/shopmanager/shopmanager/internal/platform/cache"
	"github.com/shopmanager/shopmanager/internal/platform/db"
	"github.com/shopmanager/shopmanager/internal/products"
	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/repairs"
	"github.com/shopmanager/shopmanager/internal/sequence"
	"github.com/shopmanager/shopmanager/internal/shared"
	"github.com/shopmanager/shopmanager/internal/staff"
	"github.com/shopmanager/shopmanager/internal/suppliers"
	"github.com/shopmanager/shopmanager/internal/users"
	"github.com/shopmanager/shopmanager/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("shopmanager stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := migrateUp(cfg.PGDSN, logger); err != nil {
			return err
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	mailQueue := jobs.NewClient(redisOpts)
	defer func() {
		if err := mailQueue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	seq := newSequencer(cfg, pool, redisClient)
	observe := lifecycle.WithObserver(metrics)
	auditSink := shared.NewAuditLogger(pool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	productService := products.NewService(
		lifecycle.NewPostgresStore[products.Product](pool, products.Schema.Entity, "products"),
		products.NewUploadStore(pool), logger, observe).WithClicks(products.NewClickStore(pool))
	supplierService := suppliers.NewService(
		lifecycle.NewPostgresStore[suppliers.Supplier](pool, suppliers.Schema.Entity, "suppliers"),
		suppliers.NewGRNStore(pool), logger, observe)
	repairService := repairs.NewService(
		lifecycle.NewPostgresStore[repairs.Job](pool, repairs.Schema.Entity, "repairs"),
		productService, seq, logger, observe)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	paymentStore := payments.NewStore(pool)
	paymentService := payments.NewService(paymentStore, productService, seq, dashboardCache, logger)
	dashboardService := dashboard.NewService(paymentStore, repairService, dashboardCache, logger)

	userService := users.NewService(users.NewRepository(pool), auditSink, logger)
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, cfg.ResetTokenTTL)
	if err != nil {
		return err
	}
	authService := auth.NewService(users.NewRepository(pool), tokens, mailQueue, auditSink,
		auth.Config{ResetURL: cfg.ResetURL}, logger)

	staffService := staff.NewService(staff.NewStore(pool), logger)
	ledgerService := ledger.NewService(ledger.NewStore(pool), seq, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Authenticator:    authService,
		Metrics:          metrics,
		AuthHandler:      auth.NewHandler(logger, authService),
		UsersHandler:     users.NewHandler(logger, userService, rbacMiddleware),
		AuditHandler:     audithttp.NewHandler(logger, audit.NewService(audit.NewStore(pool)), rbacMiddleware),
		ProductsHandler:  products.NewHandler(productService, logger, cfg.UploadMaxBytes),
		SuppliersHandler: suppliers.NewHandler(supplierService, logger),
		RepairsHandler:   repairs.NewHandler(repairService, logger),
		PaymentsHandler:  payments.NewHandler(paymentService, logger).WithIdempotency(shared.NewIdempotencyStore(pool)),
		DashboardHandler: dashboard.NewHandler(dashboardService, logger),
		StaffHandler:     staff.NewHandler(logger, staffService, rbacMiddleware),
		LedgerHandler:    ledger.NewHandler(logger, ledgerService),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func newSequencer(cfg *app.Config, pool *pgxpool.Pool, client *redis.Client) sequence.Sequencer {
	if cfg.SequenceBackend == app.SequenceRedis {
		return sequence.NewRedis(client, "shopmanager")
	}
	return sequence.NewPostgres(pool)
}

func migrateUp(dsn string, logger *slog.Logger) error {
	m, err := db.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("migrator close", slog.Any("error", err))
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("migrations applied", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}
