package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/admin"
	adminpostgres "github.com/perejack/globalvisaapplication/internal/admin/postgres"
	"github.com/perejack/globalvisaapplication/internal/application"
	applicationpostgres "github.com/perejack/globalvisaapplication/internal/application/postgres"
	"github.com/perejack/globalvisaapplication/internal/auth"
	"github.com/perejack/globalvisaapplication/internal/booking"
	bookingpostgres "github.com/perejack/globalvisaapplication/internal/booking/postgres"
	"github.com/perejack/globalvisaapplication/internal/core/events"
	"github.com/perejack/globalvisaapplication/internal/payment"
	paymentpostgres "github.com/perejack/globalvisaapplication/internal/payment/postgres"
	"github.com/perejack/globalvisaapplication/internal/paymentgateway"
	"github.com/perejack/globalvisaapplication/internal/transport/rest"
	"github.com/perejack/globalvisaapplication/internal/user"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and confirm payments in the background`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Router     *chi.Mux
	EventBus   *events.EventBus
	Dispatcher *payment.Dispatcher
	Payments   *payment.Service
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	log := deps.Logger

	if n, err := deps.Payments.Resume(context.Background()); err != nil {
		log.Error("failed to resume unfinished payments", "error", err)
	} else if n > 0 {
		log.Info("resumed payment confirmation loops", "count", n)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	log.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			shutdown(deps, nil)
			os.Exit(1)
		}
	}

	shutdown(deps, server)
	log.Info("Server stopped")
}

// shutdown stops intake first, then the poll workers, then in-flight event handlers.
func shutdown(deps *Dependencies, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log := deps.Logger

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
	}
	if err := deps.Dispatcher.Shutdown(ctx); err != nil {
		log.Warn("payment workers did not stop in time", "error", err)
	}
	if err := deps.EventBus.Drain(ctx); err != nil {
		log.Warn("event handlers did not finish in time", "error", err)
	}
	if err := deps.DB.Close(); err != nil {
		log.Error("Database close error", "error", err)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	var (
		registry   *prometheus.Registry
		registerer prometheus.Registerer
	)
	if config.Observability.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer = registry
	}

	eventBus := events.NewEventBus(log)

	applicationService := application.NewService(applicationpostgres.NewApplicationRepository(gormDB), log)
	application.NewEventHandler(applicationService, log).RegisterEventHandlers(eventBus)

	paymentService, dispatcher := newPaymentService(config, gormDB, applicationService, eventBus, registerer, log, nil)

	bookingService := booking.NewService(bookingpostgres.NewBookingRepository(gormDB), applicationService, log)
	adminService := admin.NewService(adminpostgres.NewStore(db), admin.Config{
		ActivationFee: config.Payment.Amount,
		Currency:      config.Payment.Currency,
	}, log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterDeps{
		Applications:   application.NewHandler(applicationService, log),
		Payments:       payment.NewHandler(paymentService, log),
		Bookings:       booking.NewHandler(bookingService, log),
		Admin:          admin.NewHandler(adminService, log),
		Users:          user.NewHandler(user.NewService(applicationService), log),
		Auth:           auth.NewMiddleware(auth.NewTokenVerifier(config.Auth.JWTSecret, config.Auth.Audience), log),
		DB:             db,
		PollQueue:      dispatcher,
		Registry:       registry,
		MetricsPath:    config.Observability.Metrics.Path,
		AllowedOrigins: splitOrigins(config.Server.AllowedOrigins),
		Logger:         log,
	})

	return &Dependencies{
		Config:     config,
		DB:         db,
		Gorm:       gormDB,
		Router:     router,
		EventBus:   eventBus,
		Dispatcher: dispatcher,
		Payments:   paymentService,
		Logger:     log,
	}, nil
}

// newPaymentService wires the gateway client, poller and worker pool. A non-nil
// scheduler replaces the pool; the returned dispatcher is then nil.
func newPaymentService(
	config *internal.Config,
	gormDB *gorm.DB,
	applications payment.ApplicationProvider,
	eventBus *events.EventBus,
	reg prometheus.Registerer,
	log *slog.Logger,
	scheduler payment.Scheduler,
) (*payment.Service, *payment.Dispatcher) {
	metrics := payment.NewMetrics(reg)

	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL: config.Gateway.BaseURL,
		APIKey:  config.Gateway.APIKey,
		TillID:  config.Gateway.TillID,
		Timeout: config.Gateway.RequestTimeout,
	}, nil, log)

	poller := payment.NewPoller(gateway,
		payment.WithInitialDelay(config.Payment.InitialDelay),
		payment.WithPollInterval(config.Payment.PollInterval),
		payment.WithMaxAttempts(config.Payment.MaxAttempts),
		payment.WithMaxWindow(config.Payment.MaxWindow),
		payment.WithPollerMetrics(metrics),
		payment.WithPollerLogger(log),
	)

	var dispatcher *payment.Dispatcher
	if scheduler == nil {
		dispatcher = payment.NewDispatcher(payment.DispatcherConfig{
			MaxWorkers:   config.Payment.MaxWorkers,
			JobQueueSize: config.Payment.JobQueueSize,
		}, log)
		scheduler = dispatcher
	}

	service := payment.NewService(payment.Config{
		Amount:      config.Payment.Amount,
		Currency:    config.Payment.Currency,
		CountryCode: config.Payment.CountryCode,
	}, payment.Dependencies{
		Repository:   paymentpostgres.NewPaymentRepository(gormDB),
		Applications: applications,
		Gateway:      gateway,
		Poller:       poller,
		Scheduler:    scheduler,
		EventBus:     eventBus,
		Metrics:      metrics,
	}, log)

	if dispatcher != nil {
		dispatcher.Start(service.ProcessJob)
	}
	return service, dispatcher
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}
