package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/category"
	"github.com/Ramsey-B/clover/internal/repositories/expense"
	"github.com/Ramsey-B/clover/internal/repositories/plan"
	"github.com/Ramsey-B/clover/internal/repositories/template"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/redis"
	categoryroutes "github.com/Ramsey-B/clover/pkg/routes/category"
	expenseroutes "github.com/Ramsey-B/clover/pkg/routes/expense"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	planroutes "github.com/Ramsey-B/clover/pkg/routes/plan"
	templateroutes "github.com/Ramsey-B/clover/pkg/routes/template"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind environment variables: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	seq := startup.NewSequence(logger, cfg.StartupMaxAttempts)

	var (
		sqlxDB   *sqlx.DB
		db       database.DB
		cache    *redis.Client
		producer *kafka.Producer
		tp       *sdktrace.TracerProvider
		server   *http.Server
		checker  *health.Checker
	)

	seq.Add(startup.Func{
		DependencyName: "tracing",
		StartFunc: func(ctx context.Context) error {
			if !cfg.TracingEnabled {
				return nil
			}
			exporterCfg := exporters.DefaultOTLPConfig()
			exporterCfg.Endpoint = cfg.TracingOTLPEndpoint
			exporterCfg.Protocol = cfg.TracingOTLPProtocol
			exporter, err := exporters.NewOTLPExporter(ctx, exporterCfg)
			if err != nil {
				return err
			}
			res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(cfg.AppName),
				semconv.ServiceVersion(cfg.Version),
			))
			if err != nil {
				return err
			}
			tp = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter),
				sdktrace.WithResource(res),
				sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TracingSampleRate))),
			)
			otel.SetTracerProvider(tp)
			tracing.SetTracer(tp.Tracer(cfg.AppName))
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if tp == nil {
				return nil
			}
			return tp.Shutdown(ctx)
		},
	})

	seq.Add(startup.Func{
		DependencyName: "database",
		StartFunc: func(ctx context.Context) error {
			dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
				cfg.DatabaseName, cfg.DatabaseSSLMode)
			conn, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			sqlxDB = conn
			db = database.NewDatabaseInstance(conn, logger)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if sqlxDB == nil {
				return nil
			}
			return sqlxDB.Close()
		},
	})

	seq.Add(startup.Func{
		DependencyName: "migrations",
		Requires:       []string{"database"},
		StartFunc: func(ctx context.Context) error {
			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
	})

	seq.Add(startup.Func{
		DependencyName: "cache",
		StartFunc: func(ctx context.Context) error {
			if !cfg.RedisEnabled {
				return nil
			}
			client, err := redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			cache = client
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if cache == nil {
				return nil
			}
			return cache.Close()
		},
	})

	seq.Add(startup.Func{
		DependencyName: "events",
		StartFunc: func(ctx context.Context) error {
			if len(cfg.KafkaBrokers) == 0 {
				logger.Info("No Kafka brokers configured, lifecycle events are disabled")
				return nil
			}
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaOutputTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, logger)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if producer == nil {
				return nil
			}
			return producer.Close()
		},
	})

	seq.Add(startup.Func{
		DependencyName: "dependencies",
		Requires:       []string{"database", "migrations", "cache", "events"},
		StartFunc: func(ctx context.Context) error {
			return registerDependencies(cfg, logger, db, cache, producer)
		},
	})

	seq.Add(startup.Func{
		DependencyName: "http",
		Requires:       []string{"dependencies", "tracing"},
		StartFunc: func(ctx context.Context) error {
			e := newEcho(cfg, logger)

			checker = health.NewChecker(db, cache, cfg.Version)
			checker.Register(e)

			server = &http.Server{
				Addr:           fmt.Sprintf(":%d", cfg.Port),
				Handler:        e,
				ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				MaxHeaderBytes: cfg.MaxHeaderBytes,
			}

			go func() {
				logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)
				checker.SetReady(true)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("http server stopped unexpectedly")
				}
			}()
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if server == nil {
				return nil
			}
			checker.SetReady(false)
			return server.Shutdown(ctx)
		},
	})

	if err := seq.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := seq.Stop(stopCtx); stopErr != nil {
			logger.WithError(stopErr).Error("failed to stop dependencies after startup failure")
		}
		return err
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return seq.Stop(stopCtx)
}

// registerDependencies builds the repositories and event emitter and makes
// them resolvable through the request context.
func registerDependencies(cfg config.Config, logger ectologger.Logger, db database.DB, cache *redis.Client, producer *kafka.Producer) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	templates, err := template.NewRepository(db, logger)
	if err != nil {
		return err
	}
	plans, err := plan.NewRepository(db, logger)
	if err != nil {
		return err
	}
	categories, err := category.NewRepository(db, logger)
	if err != nil {
		return err
	}
	expenses, err := expense.NewRepository(db, logger)
	if err != nil {
		return err
	}

	if cache != nil {
		lock := redis.NewLocker(cache, cfg.AppName)
		templates.UseShareLock(lock)
		plans.UseShareLock(lock)
	}

	emitter := events.NewEmitter(producer, logger)

	if err := ectoinject.RegisterInstance[*template.Repository](container, templates); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*plan.Repository](container, plans); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*category.Repository](container, categories); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*expense.Repository](container, expenses); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*events.Emitter](container, emitter)
}

func newEcho(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.AppName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		api.Use(middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID))
	}

	templateroutes.Register(api.Group("/templates"))
	planroutes.Register(api.Group("/plans"))
	categoryroutes.Register(api.Group("/categories"))
	expenseroutes.Register(api.Group("/expenses"))

	return e
}

func newLogger(cfg config.Config) (ectologger.Logger, error) {
	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}
