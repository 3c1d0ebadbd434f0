package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/mtlprog/rebalancer/internal/config"
	"github.com/mtlprog/rebalancer/internal/database"
	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/external"
	"github.com/mtlprog/rebalancer/internal/gateway"
	"github.com/mtlprog/rebalancer/internal/planner"
	"github.com/mtlprog/rebalancer/internal/registry"
	"github.com/mtlprog/rebalancer/internal/store"
	"github.com/mtlprog/rebalancer/internal/venue"
)

type deps struct {
	registry *registry.Service
	close    func()
}

// openDeps wires the store, oracle dialer and venue into a registry.
func openDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	quote, err := domain.ParseAssetID(cfg.QuoteAsset)
	if err != nil {
		return nil, fmt.Errorf("QUOTE_ASSET: %w", err)
	}

	st, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	feed := external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	dialer := gateway.NewHorizonDialer(cfg.HorizonURL, quote, cfg.HorizonRetryMax, cfg.HorizonRetryBaseDelay).
		WithPriceFeed(feed)

	var v planner.Venue
	if cfg.VenueURL == "" {
		slog.Warn("no execution venue configured, trades are answered by the stub venue and never settle")
		v = venue.NewStub(true)
	} else {
		v = venue.NewHTTP(cfg.VenueURL, cfg.VenueRetryMax, cfg.VenueRetryBaseDelay)
	}

	return &deps{
		registry: registry.NewService(st, dialer, v),
		close:    closeStore,
	}, nil
}

func openStore(ctx context.Context, databaseURL string) (store.Store, func(), error) {
	if databaseURL == "" {
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := database.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return store.NewPgStore(pool), pool.Close, nil
}
