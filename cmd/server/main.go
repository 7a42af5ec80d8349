package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/guiapractica/cuentas/internal/api"
	"github.com/guiapractica/cuentas/internal/api/views"
	"github.com/guiapractica/cuentas/internal/core/ports"
	"github.com/guiapractica/cuentas/internal/core/service"
	mongostore "github.com/guiapractica/cuentas/internal/infrastructure/db/mongo"
	pgstore "github.com/guiapractica/cuentas/internal/infrastructure/db/postgres"
	redisstore "github.com/guiapractica/cuentas/internal/infrastructure/db/redis"
	opshttp "github.com/guiapractica/cuentas/internal/infrastructure/http"
	"github.com/guiapractica/cuentas/internal/infrastructure/mail"
	"github.com/guiapractica/cuentas/internal/infrastructure/queue"
	"github.com/guiapractica/cuentas/internal/infrastructure/token"
	"github.com/guiapractica/cuentas/internal/pkg/config"
	"github.com/guiapractica/cuentas/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type store interface {
	ports.UserRepository
	ports.Pinger
}

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "cuentas",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info().Str("driver", cfg.StoreDriver).Msg("credential store ready")

	deps := map[string]ports.Pinger{cfg.StoreDriver: repo}

	var ledger queue.Ledger = queue.NopLedger{}
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		l := redisstore.NewDeliveryLedger(rdb, redisstore.DefaultLedgerTTL)
		ledger = l
		deps["redis"] = l
		log.Info().Str("addr", cfg.Redis.Addr).Msg("delivery ledger enabled")
	}

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.User,
		Password: cfg.Email.Pass,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
		TLS:      cfg.Email.TLS,
	})
	if err != nil {
		return err
	}

	dispatcher := queue.NewDispatcher(
		queue.Config{Workers: cfg.Email.Workers},
		mail.NewNotifier(sender, cfg.BaseURL),
		ledger,
		logger.Component("mail"),
	)
	// Workers outlive ctx so queued mail is drained by Shutdown.
	dispatcher.Start(context.Background())

	sessions := token.NewJWTSessionIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, token.DefaultIssuer)
	accounts := service.NewAccountService(
		repo,
		dispatcher,
		token.NewHexTokenGenerator(),
		sessions,
		token.NewBcryptHasher(cfg.Auth.BcryptCost),
		logger.Component("accounts"),
	)

	renderer, err := views.New()
	if err != nil {
		return err
	}

	public := api.NewRouter(api.Deps{
		Accounts:     accounts,
		Sessions:     sessions,
		Renderer:     renderer,
		Log:          log,
		LandingPath:  cfg.LandingPath,
		CookieSecure: cfg.Auth.CookieSecure,
		CSRFEnabled:  cfg.Auth.CSRFEnabled,
	})
	ops := opshttp.NewRouter(deps, nil, log)

	errCh := make(chan error, 2)
	serve := func(name string, e *echo.Echo, port string) {
		log.Info().Str("server", name).Str("port", port).Msg("listening")
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("public", public, cfg.Port)
	go serve("ops", ops, cfg.OpsPort)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := public.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("public server: %w", err))
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("ops server: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info().Msg("graceful shutdown completed")
	return nil
}

// openStore connects the configured credential store and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := pgstore.Connect(ctx, pgstore.Config{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgstore.NewUserRepository(pool), pool.Close, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		repo := mongostore.NewUserRepository(db)
		closeFn := func() { _ = mongostore.Disconnect(client, shutdownTimeout) }
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	}
}
