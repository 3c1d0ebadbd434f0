package main

import (
	"context"
	"embed"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/rebalancer/internal/api"
	"github.com/mtlprog/rebalancer/internal/config"
	"github.com/mtlprog/rebalancer/internal/export"
	"github.com/mtlprog/rebalancer/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "rebalancer",
		Usage: "keep Stellar portfolios at their target weights",
		Commands: []*cli.Command{
			serveCommand(),
			initCommand(),
			addAssetCommand(),
			setOracleCommand(),
			reportCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the periodic rebalance sweep",
		Action: func(c *cli.Context) error {
			return serve(c.Context, config.Load())
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	d, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	if cfg.RebalanceWorkerInterval > 0 {
		var hook worker.AfterSweepHook
		if cfg.SheetsEnabled() {
			writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.GoogleCredentialsJSON)
			if err != nil {
				return err
			}
			hook = export.NewService(d.registry, writer)
		}
		rebalanceWorker := worker.NewRebalanceWorker(d.registry, cfg.RebalanceWorkerInterval, hook)
		go rebalanceWorker.Run(ctx)
	} else {
		slog.Info("REBALANCE_WORKER_INTERVAL is 0, periodic sweep disabled")
	}

	srv := api.NewServer(cfg.HTTPPort, d.registry, cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
