package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/database"
	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/ecorepay"
	mongoAudit "github.com/dema501/magento-payment-module-EcorePay/internal/adapters/mongo"
	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/postgres"
	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/slack"
	"github.com/dema501/magento-payment-module-EcorePay/internal/config"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	cronHandler "github.com/dema501/magento-payment-module-EcorePay/internal/handlers/cron"
	"github.com/dema501/magento-payment-module-EcorePay/internal/services/reconciliation"
	httpclient "github.com/dema501/magento-payment-module-EcorePay/pkg/http"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/middleware"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/observability"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/security"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting EcorePay reconciler",
		zap.Bool("active", cfg.Gateway.Active),
		zap.Bool("async", cfg.Gateway.Async),
		zap.String("secrets_backend", cfg.Secrets.Backend),
	)
	if cfg.Gateway.InsecureSkipVerify {
		logger.Warn("TLS verification is disabled for the EcorePay gateway")
	}

	ctx := context.Background()
	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	// Database
	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	sm.RegisterNoErr("database", db.Close)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	db.StartPoolMonitoring(monitorCtx, time.Minute)
	sm.RegisterNoErr("pool-monitor", stopMonitor)

	// Credentials
	source, closeSecrets := initSecretStore(ctx, cfg, logger)
	if closeSecrets != nil {
		sm.RegisterCloser("secrets", closeSecrets)
	}
	provider := config.NewProvider(cfg, source)

	portLogger := security.NewZapLogger(logger)

	// Alerts and gateway client
	var notifier ports.Notifier
	if cfg.Notifications.Enabled {
		notifier = slack.NewNotifier(
			httpclient.NewHTTPClient(httpclient.WebhookClientConfig(), 15*time.Second),
			cfg.Notifications.SlackWebhookURL,
			slack.WithChannel(cfg.Notifications.SlackChannel),
			slack.WithUsername(cfg.Notifications.SlackUsername),
		)
	}
	alerts := ecorepay.NewAlerter(notifier, provider, portLogger)

	gatewayHTTP := httpclient.EcorePayClientConfig()
	gatewayHTTP.InsecureSkipVerify = cfg.Gateway.InsecureSkipVerify
	transport := ecorepay.NewTransport(httpclient.NewHTTPClient(gatewayHTTP, cfg.Gateway.Timeout), alerts, portLogger)

	clientOpts := []ecorepay.Option{ecorepay.WithRepeatTag(cfg.Gateway.RepeatTag)}
	if !cfg.Gateway.SynthesizeDOB {
		clientOpts = append(clientOpts, ecorepay.WithDOBPolicy(ecorepay.NoDOB))
	}
	client := ecorepay.NewClient(transport, provider, alerts, portLogger, clientOpts...)

	// Reconciliation engine
	engineOpts := []reconciliation.Option{}
	if cfg.Reconciliation.AdvisoryLocks {
		engineOpts = append(engineOpts, reconciliation.WithLocker(postgres.NewAdvisoryLocker(db.Pool())))
	}

	var mongoClient *mongo.Client
	if cfg.Audit.MongoURI != "" {
		mongoClient, err = mongoAudit.Connect(ctx, cfg.Audit.MongoURI)
		if err != nil {
			logger.Fatal("Failed to connect to audit database", zap.Error(err))
		}
		sm.Register("audit", mongoClient.Disconnect)

		coll := mongoClient.Database(cfg.Audit.Database).Collection(cfg.Audit.Collection)
		if err := mongoAudit.EnsureIndexes(ctx, coll); err != nil {
			logger.Warn("Failed to create audit indexes", zap.Error(err))
		}
		engineOpts = append(engineOpts, reconciliation.WithAuditTrail(mongoAudit.NewAuditTrail(coll)))
		logger.Info("Reconciliation audit trail enabled",
			zap.String("database", cfg.Audit.Database),
			zap.String("collection", cfg.Audit.Collection),
		)
	}

	engine := reconciliation.NewEngine(
		postgres.NewOrderStore(db),
		client,
		provider,
		portLogger,
		reconciliation.Config{
			SettledStatuses: cfg.Reconciliation.SettledStatuses,
			OnSyncError:     reconciliation.OnSyncError(cfg.Reconciliation.OnSyncError),
			BatchSize:       cfg.Reconciliation.BatchSize,
			RatePerSecond:   cfg.Reconciliation.RatePerSecond,
		},
		engineOpts...,
	)

	// Ops server: metrics, health, cron triggers
	checks := map[string]observability.Pinger{"postgres": db}
	if mongoClient != nil {
		checks["mongo"] = observability.PingerFunc(func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		})
	}
	cron := cronHandler.NewReconciliationHandler(engine, logger, cfg.Reconciliation.CronSecret)
	if cfg.Reconciliation.CronSecret == "" {
		logger.Warn("CRON_SECRET is empty, cron endpoints will reject every request")
	}
	limiter := middleware.NewRateLimiter(1, 5, 10*time.Minute)
	router := observability.NewOpsRouter(observability.NewHealthChecker(checks), func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			cron.Routes(r)
		})
	})
	server := observability.StartOpsServer(strconv.Itoa(cfg.Server.Port), router, logger)
	sm.Register("ops-server", server.Shutdown)
	logger.Info("Ops server listening", zap.Int("port", cfg.Server.Port))

	// In-process schedule
	if cfg.Reconciliation.SchedulerEnabled {
		scheduler, err := reconciliation.NewScheduler(engine, cfg.Reconciliation.Schedule, time.UTC, portLogger)
		if err != nil {
			logger.Fatal("Failed to create reconciliation scheduler", zap.Error(err))
		}
		scheduler.Start()
		sm.Register("scheduler", scheduler.Stop)
	}

	if err := sm.Wait(ctx); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		os.Exit(1)
	}
}

// initLogger builds a JSON logger, or a console logger in development
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initDatabase opens the pool and applies pending migrations
func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.PostgreSQLAdapter, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns

	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}

	version, err := postgres.Migrate(ctx, db.Pool())
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Database schema ready",
		zap.String("database", cfg.Database.Database),
		zap.Int64("schema_version", version),
	)
	return db, nil
}
