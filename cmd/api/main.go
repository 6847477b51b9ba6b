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

	"github.com/fastprodman/ledger/internal/api"
	"github.com/fastprodman/ledger/internal/events"
	"github.com/fastprodman/ledger/internal/infra/logging"
	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/ledgerlog"
	"github.com/fastprodman/ledger/internal/repos/ledgerlog/memory"
	pgledgerlog "github.com/fastprodman/ledger/internal/repos/ledgerlog/postgres"
	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/fastprodman/ledger/pkg/envconf"
	"github.com/fastprodman/ledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	shutdown := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdown.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	store, err := openStore(ctx, cfg, shutdown)
	if err != nil {
		return err
	}

	publisher, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("init events: %w", err)
	}

	shutdown.Add(func(c context.Context) error {
		slog.Info("Shut down event publisher")

		return publisher.Stop(c)
	})

	err = publisher.Start(ctx)
	if err != nil {
		return fmt.Errorf("start events: %w", err)
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if publisher.Enabled() {
		opts = append(opts, ledger.WithNotifier(publisher))
	}

	ledgerSrv := ledger.New(store, opts...)

	if cfg.Seed {
		seeded, serr := ledgerSrv.SeedIfEmpty(ctx, ledger.DemoSeed)
		if serr != nil {
			return fmt.Errorf("seed ledger: %w", serr)
		}

		slog.Info("ledger seed checked", "seeded", seeded)
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, ledgerSrv, logger)

	// Register HTTP server graceful shutdown
	shutdown.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
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

	slog.Info("API started", "port", cfg.Port, "store", cfg.Store)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdown queue will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

func openStore(ctx context.Context, cfg *apiConfig, shutdown *shutdownqueue.Queue) (ledgerlog.Log, error) {
	if cfg.Store == storeMemory {
		slog.Warn("using in-memory ledger store; history is lost on restart")

		return memory.New(), nil
	}

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	shutdown.Add(func(context.Context) error {
		slog.Info("Close database pool")

		return db.Close()
	})

	return pgledgerlog.New(db), nil
}
