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

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/activity"
	activityPostgres "github.com/frahmantamala/lead-management/internal/activity/postgres"
	"github.com/frahmantamala/lead-management/internal/analytics"
	analyticsPostgres "github.com/frahmantamala/lead-management/internal/analytics/postgres"
	"github.com/frahmantamala/lead-management/internal/auth"
	authPostgres "github.com/frahmantamala/lead-management/internal/auth/postgres"
	"github.com/frahmantamala/lead-management/internal/core/database"
	"github.com/frahmantamala/lead-management/internal/core/events"
	"github.com/frahmantamala/lead-management/internal/lead"
	leadPostgres "github.com/frahmantamala/lead-management/internal/lead/postgres"
	"github.com/frahmantamala/lead-management/internal/mailer"
	"github.com/frahmantamala/lead-management/internal/notification"
	notificationPostgres "github.com/frahmantamala/lead-management/internal/notification/postgres"
	"github.com/frahmantamala/lead-management/internal/source"
	sourcePostgres "github.com/frahmantamala/lead-management/internal/source/postgres"
	"github.com/frahmantamala/lead-management/internal/transport"
	"github.com/frahmantamala/lead-management/internal/transport/middleware"
	"github.com/frahmantamala/lead-management/internal/transport/rest"
	"github.com/frahmantamala/lead-management/internal/user"
	userPostgres "github.com/frahmantamala/lead-management/internal/user/postgres"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/frahmantamala/lead-management/pkg/metrics"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and websocket observers`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Gorm    *gorm.DB
	Redis   *redis.Client
	Bus     *events.EventBus
	Mail    *mailer.Pool
	Hub     *analytics.Hub
	Metrics *metrics.Metrics
	Limiter *middleware.RateLimiter
	Router  *chi.Mux
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go deps.Limiter.Run(bgCtx)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.shutdown(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// shutdown stops background work in dependency order: observers first, then
// pending event handlers, then queued mail, then the stores.
func (d *Dependencies) shutdown(ctx context.Context) {
	if n := d.Hub.CloseAll(); n > 0 {
		d.Logger.Info("Disconnected websocket observers", "count", n)
	}
	d.Bus.Wait()

	if err := d.Mail.Drain(ctx); err != nil {
		d.Logger.Warn("Mail queue not drained before shutdown", "pending", d.Mail.Pending(), "error", err)
	}
	d.Mail.Shutdown()

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)
	ctx := context.Background()

	// Repositories
	authRepo := authPostgres.NewRepository(deps.Gorm)
	userRepo := userPostgres.NewUserRepository(deps.Gorm)
	leadRepo := leadPostgres.NewLeadRepository(deps.Gorm)
	activityRepo := activityPostgres.NewActivityRepository(deps.Gorm)
	sourceRepo := sourcePostgres.NewSourceRepository(deps.Gorm)
	notificationRepo := notificationPostgres.NewNotificationRepository(deps.Gorm)
	analyticsRepo := analyticsPostgres.NewAnalyticsRepository(deps.DB)

	// Services
	var revoker auth.TokenRevoker = auth.NewMemoryBlacklist()
	if deps.Redis != nil {
		revoker = auth.NewRedisBlacklist(deps.Redis)
	}
	tokenGen := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(authRepo, tokenGen, revoker, cfg.Security.BCryptCost, lg)
	userService := user.NewService(userRepo, lg)
	leadService := lead.NewService(leadRepo, userRepo, deps.Bus, cfg.Leads.DefaultPhoneRegion, lg)
	activityService := activity.NewService(activityRepo, leadService, deps.Bus, lg)
	sourceService := source.NewService(sourceRepo, lg)
	notificationService := notification.NewService(notificationRepo, userRepo, deps.Mail, cfg.Server.BaseURL, lg)
	analyticsService := analytics.NewService(analyticsRepo, lg)

	if n, err := sourceService.EnsureDefaults(ctx); err != nil {
		lg.Warn("Could not ensure default lead sources", "error", err)
	} else if n > 0 {
		lg.Info("Seeded default lead sources", "count", n)
	}

	// Event subscribers
	notifier := analytics.NewNotifier(analyticsService, deps.Hub, lg)
	notifier.RegisterEventHandlers(deps.Bus)
	notification.NewEventHandler(notificationService, lg).RegisterEventHandlers(deps.Bus)

	// Handlers
	authHandler := auth.NewHandler(authService)
	handlers := rest.Handlers{
		Auth:         authHandler,
		User:         user.NewHandler(userService),
		Lead:         lead.NewHandler(base, leadService),
		Activity:     activity.NewHandler(base, activityService),
		Source:       source.NewHandler(base, sourceService),
		Notification: notification.NewHandler(base, notificationService),
		Dashboard:    analytics.NewHandler(base, analyticsService),
		WebSocket:    analytics.NewWebSocketHandler(base, deps.Hub, notifier, authHandler, cfg.Server.Origins()),
		Health:       rest.NewHealthHandler(deps.DB.DB),
	}
	if deps.Redis != nil {
		handlers.Health.WithCheck("redis", func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}

	opts := rest.Options{
		AllowedOrigins: cfg.Server.Origins(),
		OpenAPIPath:    cfg.OpenAPI.SpecPath,
		AuthLimiter:    deps.Limiter,
	}

	if cfg.Observability.Metrics.Enabled {
		m := deps.Metrics
		for _, eventType := range events.AllLeadTypes {
			deps.Bus.Subscribe(eventType, func(_ context.Context, event events.Event) error {
				m.CountEvent(event.EventType())
				return nil
			})
		}
		m.Gauge("websocket_observers", "Websocket observers connected right now", func() float64 {
			return float64(deps.Hub.Count())
		})
		m.Gauge("mail_queue_pending", "Emails queued or being sent", func() float64 {
			return float64(deps.Mail.Pending())
		})
		authHandler.Logins = m
		deps.Limiter.WithObserver(m)
		opts.Metrics = m
		opts.MetricsPath = cfg.Observability.Metrics.Path
	}

	if cfg.OpenAPI.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(ctx, cfg.OpenAPI.SpecPath)
		if err != nil {
			return err
		}
		validator, err := middleware.OpenAPIValidator(doc, lg)
		if err != nil {
			return err
		}
		opts.Validator = validator
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, handlers, opts, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()
	transport.SetProduction(config.IsProduction())

	db, gdb, err := initStores(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var redisClient *redis.Client
	if config.Redis.URL != "" {
		redisClient, err = auth.NewRedisClient(context.Background(), config.Redis.URL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	} else {
		lg.Warn("Redis not configured, revoked tokens are kept in memory")
	}

	return &Dependencies{
		Config:  config,
		DB:      db,
		Gorm:    gdb,
		Redis:   redisClient,
		Bus:     events.NewEventBus(lg),
		Mail:    newMailPool(config.Email, lg),
		Hub:     analytics.NewHub(lg),
		Metrics: metrics.New(),
		Limiter: middleware.NewRateLimiter(config.RateLimit.AuthRequestsPerMinute, config.RateLimit.AuthBurst, lg),
		Router:  chi.NewRouter(),
		Logger:  lg,
	}, nil
}

// newMailPool sends through SendGrid when an API key is configured and logs
// messages otherwise.
func newMailPool(cfg internal.EmailConfig, lg *slog.Logger) *mailer.Pool {
	var sender mailer.Sender
	if cfg.SendGridAPIKey != "" {
		sender = mailer.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName, lg)
	} else {
		lg.Warn("SendGrid API key not configured, emails are logged only")
		sender = mailer.NewConsoleSender(cfg.FromEmail, lg)
	}
	return mailer.NewPool(mailer.Config{
		MaxWorkers:   cfg.MaxWorkers,
		JobQueueSize: cfg.JobQueueSize,
	}, sender, lg)
}

// initStores opens one pgx pool shared by sqlx (aggregate queries) and gorm
// (repositories).
func initStores(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	gdb, err := database.OpenPostgres(db.DB)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, gdb, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
