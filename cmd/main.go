// Package main provides the CLI entrypoint of typowatch. It wires the
// subcommands (watch, migrate, subscribe, process), loads configuration and
// initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"typowatch/internal/config"
	"typowatch/internal/deltas"
	"typowatch/internal/notify"
	"typowatch/pkg/fuzzer"
	"typowatch/pkg/logger"
	"typowatch/pkg/mailer"
	"typowatch/pkg/repository"
	"typowatch/pkg/resolver"
	"typowatch/pkg/storage"
	"typowatch/pkg/storage/memory"
	"typowatch/pkg/storage/postgres"
	"typowatch/pkg/storage/redis"
)

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

// getStore opens the configured record store. The postgres backend reuses
// pgsql, which may be nil for the other backends.
func getStore(ctx context.Context, cfg *config.Config, pgsql *postgres.PgSQL) (storage.Store, func()) {
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		store, err := redis.New(ctx, redis.Options{
			URL:          cfg.Redis.URL,
			Namespace:    cfg.Redis.Namespace,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			ScanCount:    cfg.Redis.ScanCount,
		})
		if err != nil {
			logger.Fatal(ctx, "could not create redis storage", zap.Error(err))
		}

		return store, func() {
			logger.Info(ctx, "closing redis client...")
			if err := store.Close(); err != nil {
				logger.Warn(ctx, "could not close redis connection", zap.Error(err))
			}
		}
	case config.StorageBackendMemory:
		logger.Warn(ctx, "using in-memory storage, records are lost on exit")

		return memory.New(), func() {}
	default:
		if pgsql == nil {
			var closePg func()
			pgsql, closePg = getPostgres(ctx, cfg)

			return pgsql, closePg
		}

		return pgsql, func() {}
	}
}

// getMailer creates the configured Mailer.
func getMailer(ctx context.Context, cfg *config.Config) mailer.Mailer {
	if cfg.Mailer.Backend != config.MailerBackendSMTP {
		return mailer.Log{}
	}

	m, err := mailer.NewSMTP(mailer.Options{
		Host:     cfg.Mailer.Host,
		Port:     cfg.Mailer.Port,
		Username: cfg.Mailer.Username,
		Password: cfg.Mailer.Password,
		TLS:      cfg.Mailer.TLS,
		From:     cfg.Mailer.From,
		Timeout:  cfg.Mailer.Timeout,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create smtp mailer", zap.Error(err))
	}

	return m
}

// processors bundles the units of work built from one repository.
type processors struct {
	repo   *repository.Repository
	deltas deltas.Processor
	notify notify.Processor
}

func newProcessors(ctx context.Context, cfg *config.Config, store storage.Store) processors {
	clock := clockwork.NewRealClock()
	repo := repository.New(store, clock)
	rs := resolver.New(resolver.Options{Timeout: cfg.Deltas.ResolveTimeout, Server: cfg.Deltas.DNSServer})

	return processors{
		repo:   repo,
		deltas: deltas.New(repo, fuzzer.New(), rs, clock, deltas.NewOptions(cfg)),
		notify: notify.New(repo, getMailer(ctx, cfg), clock, notify.NewOptions(cfg)),
	}
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:   "typowatch",
		Short: "Monitors lookalike domains and emails subscribers about changes",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	logger.Setup(cfg.Environment)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		migrateCommand(cfg),
		watchCommand(cfg),
		subscribeCommand(cfg),
		processCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
