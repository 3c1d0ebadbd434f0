// Package store persists the rebalancer's administrative config, supported
// assets and portfolio records.
package store

import (
	"context"
	"errors"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the keyed record storage behind the registry.
type Store interface {
	// LoadConfig returns ErrNotFound until the rebalancer is initialized.
	LoadConfig(ctx context.Context) (domain.AdminConfig, error)
	// InitConfig stores the first config and returns domain.ErrAlreadyInitialized
	// if one exists. The check and the write are a single step.
	InitConfig(ctx context.Context, cfg domain.AdminConfig) error
	SaveConfig(ctx context.Context, cfg domain.AdminConfig) error

	ListAssets(ctx context.Context) ([]domain.Asset, error)
	// AddAsset replaces an existing record with the same asset ID.
	AddAsset(ctx context.Context, asset domain.Asset) error

	GetPortfolio(ctx context.Context, owner string) (domain.Portfolio, error)
	SavePortfolio(ctx context.Context, p domain.Portfolio) error
	ListActiveOwners(ctx context.Context) ([]string, error)
}
