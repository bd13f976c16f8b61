package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/events"
	"github.com/clinicops/clinic/internal/platform/scheduler"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore connects the configured backend. The returned pinger is nil for
// the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, db.Pinger, func(), error) {
	var (
		s       store.Store
		pinger  db.Pinger
		cleanup = func() {}
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, nil, err
		}
		if _, err := db.NewMigrator(pool).Up(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate store schema: %w", err)
		}
		s, pinger, cleanup = store.NewPGStore(pool), pool, pool.Close
	case config.DriverRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, err
		}
		s = store.NewRedisStore(client, cfg.RedisKeyPrefix)
		pinger = db.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		cleanup = func() { client.Close() }
	default:
		s = store.NewMemoryStore()
	}
	if cfg.SimulatedLatency > 0 {
		s = store.WithLatency(s, cfg.SimulatedLatency)
	}
	return s, pinger, cleanup, nil
}

// signingKey returns the configured key. In development an empty key is
// replaced with a random one, so tokens do not survive a restart.
func signingKey(cfg *config.Config) ([]byte, error) {
	if cfg.AuthSigningKey != "" {
		return []byte(cfg.AuthSigningKey), nil
	}
	buf := make([]byte, 32)
	if _, err := crypto_rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return []byte(hex.EncodeToString(buf)), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	st, pinger, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer closeStore()
	logger.Info().Str("driver", cfg.StoreDriver).Dur("latency", cfg.SimulatedLatency).Msg("store ready")

	key, err := signingKey(cfg)
	if err != nil {
		return err
	}
	if cfg.AuthSigningKey == "" {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set, using an ephemeral key")
	}

	// Events
	hub := websocket.NewHub(logger)
	publishers := events.Fanout{hub}
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = events.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			logger.Error().Err(err).Msg("nats unavailable, events stay local")
		} else {
			publishers = append(publishers, events.NewNATSPublisher(nc, cfg.NATSSubject))
			logger.Info().Str("url", cfg.NATSURL).Msg("connected to nats")
		}
	}

	svcs := newServices(cfg, st, publishers, logger)
	hub.SetSnapshot(events.TopicQueue, svcs.queue.Snapshot)
	if cfg.IsDev() && cfg.StoreDriver == config.DriverMemory {
		n, err := seedDemo(ctx, svcs, defaultSeedPassword)
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info().Int("records", n).Msg("seeded in-memory store")
	}

	// Background jobs
	jobs := scheduler.New(logger, time.Minute)
	if err := jobs.Add("overdue-invoices", cfg.OverdueSweepSpec, func(ctx context.Context) error {
		_, err := svcs.billing.SweepOverdue(ctx, time.Now())
		return err
	}); err != nil {
		return err
	}
	jobs.Start()

	e := newEcho(cfg, svcs, hub, key, pinger, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scheduler did not stop cleanly")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logger.Warn().Err(err).Msg("nats drain failed")
		}
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres store schema",
	}

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for migrations")
		}
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool))
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%-8s %-30s %-8s %s\n", "VERSION", "NAME", "APPLIED", "APPLIED AT")
				for _, s := range statuses {
					applied, at := "no", ""
					if s.Applied {
						applied = "yes"
					}
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%-8d %-30s %-8s %s\n", s.Version, s.Name, applied, at)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}
