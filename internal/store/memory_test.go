package store

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
)

var (
	xlm  = domain.NativeAsset()
	usdc = domain.NewAsset("USDC", "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN")
)

func TestMemoryStoreConfig(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.LoadConfig(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadConfig() on empty store error = %v, want ErrNotFound", err)
	}

	want := domain.AdminConfig{Admin: "GADMIN", OracleAddress: "fallback"}
	if err := s.SaveConfig(ctx, want); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	got, err := s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got != want {
		t.Errorf("LoadConfig() = %+v, want %+v", got, want)
	}
}

func TestMemoryStoreInitConfigOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.InitConfig(ctx, domain.AdminConfig{Admin: "GA"}); err != nil {
		t.Fatalf("InitConfig() error: %v", err)
	}
	if err := s.InitConfig(ctx, domain.AdminConfig{Admin: "GB"}); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Errorf("second InitConfig() error = %v, want AlreadyInitialized", err)
	}
	if got, _ := s.LoadConfig(ctx); got.Admin != "GA" {
		t.Errorf("admin = %q, want GA", got.Admin)
	}
}

func TestMemoryStoreAddAssetReplacesByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.AddAsset(ctx, xlm)
	_ = s.AddAsset(ctx, usdc)
	renamed := xlm
	renamed.Symbol = "Lumens"
	_ = s.AddAsset(ctx, renamed)

	assets, _ := s.ListAssets(ctx)
	if len(assets) != 2 {
		t.Fatalf("ListAssets() = %d assets, want 2", len(assets))
	}
	if assets[0].Symbol != "Lumens" || assets[1].ID != usdc.ID {
		t.Errorf("ListAssets() = %+v", assets)
	}
}

func TestMemoryStorePortfolioIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := domain.Portfolio{
		Owner:          "GOWNER",
		Allocations:    []domain.Allocation{{Asset: xlm, TargetBps: 10000}},
		DriftThreshold: 500,
		LastRebalance:  time.Unix(1700000000, 0),
		Active:         true,
	}
	if err := s.SavePortfolio(ctx, p); err != nil {
		t.Fatalf("SavePortfolio() error: %v", err)
	}
	p.Allocations[0].TargetBps = 1

	got, err := s.GetPortfolio(ctx, "GOWNER")
	if err != nil {
		t.Fatalf("GetPortfolio() error: %v", err)
	}
	if got.Allocations[0].TargetBps != 10000 {
		t.Error("stored portfolio shares the caller's allocation slice")
	}

	if _, err := s.GetPortfolio(ctx, "GOTHER"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPortfolio(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListActiveOwners(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.SavePortfolio(ctx, domain.Portfolio{Owner: "GB", Active: true})
	_ = s.SavePortfolio(ctx, domain.Portfolio{Owner: "GA", Active: true})
	_ = s.SavePortfolio(ctx, domain.Portfolio{Owner: "GC", Active: false})

	owners, err := s.ListActiveOwners(ctx)
	if err != nil {
		t.Fatalf("ListActiveOwners() error: %v", err)
	}
	if !slices.Equal(owners, []string{"GA", "GB"}) {
		t.Errorf("ListActiveOwners() = %v, want [GA GB]", owners)
	}
}
