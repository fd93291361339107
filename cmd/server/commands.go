package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

// NewRootCommand builds the CLI: serve, migrate and consume.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "table-reservation",
		Short:         "Restaurant table reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand(), newMigrateCommand(), newConsumeCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var (
		migrate      bool
		withConsumer bool
		notify       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(migrate, withConsumer, notify)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before serving")
	cmd.Flags().BoolVar(&withConsumer, "with-consumer", false, "also run the booking log consumer in this process")
	cmd.Flags().BoolVar(&notify, "notify", true, "publish booking confirmations to RabbitMQ")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, dialect, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, dialect); err != nil {
				return err
			}
			log.Info().Str("dialect", dialect).Msg("schema up to date")
			return nil
		},
	}
}

func newConsumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Append confirmed bookings from RabbitMQ to the booking log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = queue.NewConsumer(cfg.RabbitURL, cfg.LogDir, log).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func bootstrap() (config.Config, *zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := config.NewLogger(cfg.Env, cfg.LogLevel)
	return cfg, &log, nil
}

func openDB(cfg config.Config) (*sql.DB, string, error) {
	if cfg.DBDriver == database.DialectSQLite {
		db, err := database.OpenSQLite(cfg.SQLitePath)
		return db, database.DialectSQLite, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	return db, database.DialectMySQL, err
}

func serve(migrate, withConsumer, notify bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	}

	var notifier service.Notifier
	if notify {
		notifier = queue.NewPublisher(cfg.RabbitURL, log)
	}
	store := repository.NewRestaurantRepo(db)
	engine := service.NewEngine(store, notifier, log, service.Options{MaxAttempts: cfg.BookingMaxAttempts})
	rdb := config.NewRedisClient(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	if withConsumer {
		go func() {
			_ = queue.NewConsumer(cfg.RabbitURL, cfg.LogDir, log).Run(ctx)
		}()
	}

	e := router.New(router.Deps{
		Cfg:       cfg,
		Log:       log,
		Users:     repository.NewUserRepo(db),
		Engine:    engine,
		Directory: service.NewDirectory(store, engine, log),
		Redis:     rdb,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", dialect).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	engine.Wait()
	return nil
}
