package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/agenda/internal/api"
	"github.com/Togather-Foundation/agenda/internal/audit"
	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/config"
	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/metrics"
	"github.com/Togather-Foundation/agenda/internal/storage"
	"github.com/Togather-Foundation/agenda/internal/storage/memory"
	"github.com/Togather-Foundation/agenda/internal/storage/postgres"
	"github.com/Togather-Foundation/agenda/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host string
	port int
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agenda HTTP server",
		Long: `Start the agenda HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Open the store (PostgreSQL, or in-memory with STORAGE_DRIVER=memory)
- Apply embedded migrations when DATABASE_AUTO_MIGRATE is true
- Bootstrap the admin user if ADMIN_* env vars are set
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with an in-memory store and debug logging
  STORAGE_DRIVER=memory server serve --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 5002)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("storage", cfg.Database.Driver).Msg("starting agenda server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer closeStore()

	services := newServices(cfg, store, logger)
	if err := bootstrapAdmin(ctx, cfg.AdminBootstrap, services.users, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(api.Dependencies{
			Config: cfg,
			Logger: logger,
			Build:  buildInfo(),
			Users:  services.users,
			Events: services.events,
			Tokens: services.tokens,
			Store:  store,
		}),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

type services struct {
	tokens *auth.TokenService
	users  *users.Service
	events *events.Service
}

func newServices(cfg config.Config, store storage.Repository, logger zerolog.Logger) services {
	auditLogger := audit.NewLogger(logger)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	return services{
		tokens: tokens,
		users:  users.NewService(store.Users(), tokens, auditLogger, logger, users.WithAdminSignup(cfg.Auth.AllowAdminSignup)),
		events: events.NewService(store.Events(), auditLogger, logger),
	}
}

// openStore opens the configured backend. With withCollector the pool
// statistics collector runs until the returned close function is called.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger, withCollector bool) (storage.Repository, func(), error) {
	if cfg.Database.Driver == config.StorageDriverMemory {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		store := memory.New()
		return store, store.Close, nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	pool, err := postgres.Connect(ctx, postgres.Options{
		URL:              cfg.Database.URL,
		MaxConns:         int32(cfg.Database.MaxConnections),
		ConnectTimeout:   cfg.Database.ConnectTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	if !withCollector {
		return repo, repo.Close, nil
	}

	collector := metrics.NewDBCollector(pool)
	collectorCtx, cancel := context.WithCancel(context.Background())
	go collector.Start(collectorCtx, 15*time.Second)
	logger.Info().Msg("database metrics collector started")

	return repo, func() {
		cancel()
		repo.Close()
	}, nil
}

// bootstrapAdmin creates the configured administrator unless the email is
// already registered.
func bootstrapAdmin(ctx context.Context, cfg config.AdminBootstrapConfig, svc *users.Service, logger zerolog.Logger) error {
	if !cfg.Enabled() {
		logger.Debug().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	created, err := svc.EnsureAdmin(ctx, users.RegisterInput{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info().Str("email", cfg.Email).Msg("bootstrapped admin user")
	}
	return nil
}
