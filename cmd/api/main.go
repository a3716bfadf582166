package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/creatorledger/internal/api"
	"github.com/fastprodman/creatorledger/internal/clients/checkout"
	"github.com/fastprodman/creatorledger/internal/identity"
	"github.com/fastprodman/creatorledger/internal/infra/logging"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	pgroles "github.com/fastprodman/creatorledger/internal/repos/roles/postgres"
	"github.com/fastprodman/creatorledger/internal/services/disputes"
	"github.com/fastprodman/creatorledger/internal/services/fees"
	"github.com/fastprodman/creatorledger/internal/services/ledger"
	"github.com/fastprodman/creatorledger/internal/services/notify"
	"github.com/fastprodman/creatorledger/internal/services/payouts"
	"github.com/fastprodman/creatorledger/internal/services/reservations"
	"github.com/fastprodman/creatorledger/internal/services/sessions"
	"github.com/fastprodman/creatorledger/pkg/envconf"
	"github.com/fastprodman/creatorledger/pkg/shutdownqueue"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.AddCloser("postgres", db)

	schedule, err := fees.LoadSchedule(cfg.Fees.File, fees.Schedule{
		PlatformFeeBps: cfg.Fees.PlatformFeeBps,
		TransferFeeBps: cfg.Fees.TransferFeeBps,
	})
	if err != nil {
		return fmt.Errorf("load fees: %w", err)
	}

	var limiter api.RateLimiter

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}

		rdb := redis.NewClient(opts)
		shutdownqueue.AddCloser("redis", rdb)

		err = rdb.Ping(ctx).Err()
		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		limiter = api.NewRedisLimiter(rdb, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
	}

	var publisher notify.Publisher = notify.LogPublisher{}

	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		if err != nil {
			return fmt.Errorf("init kafka: %w", err)
		}

		shutdownqueue.AddCloser("kafka writer", kp)
		publisher = kp
	}

	// --- Services ---
	retry := pgutils.RetryPolicy{MaxAttempts: cfg.Ledger.TxMaxAttempts, Backoff: cfg.Ledger.TxRetryBackoff}

	ledgerSvc := ledger.New(db, schedule, ledger.Config{Retry: retry, MinP2PAmount: cfg.Ledger.MinP2PAmount})
	reserver := reservations.New(db, ledgerSvc)

	h := api.NewHandler(api.Deps{
		Ledger:        ledgerSvc,
		Sessions:      sessions.New(db, reserver, retry),
		Disputes:      disputes.New(db, reserver, retry),
		Payouts:       payouts.New(db, reserver, retry),
		Checkout:      checkout.New(checkout.Config{BaseURL: cfg.Checkout.BaseURL, APIKey: cfg.Checkout.APIKey, CompanyID: cfg.Checkout.CompanyID, Timeout: cfg.Checkout.Timeout}),
		Authorizer:    pgroles.New(db),
		WebhookSecret: cfg.Checkout.WebhookSecret,
		Dev:           cfg.IsDev(),
	})

	relay := notify.NewRelay(db, publisher, notify.RelayConfig{Interval: cfg.Outbox.PollInterval, Batch: cfg.Outbox.BatchSize})
	relay.Start(context.WithoutCancel(ctx))
	shutdownqueue.Add("outbox relay", relay.Stop)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.NewRouter(h, identity.NewResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer), limiter))

	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", slog.Int("port", int(cfg.Port)), slog.Bool("rate_limit", limiter != nil))

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
