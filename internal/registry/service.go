// Package registry owns portfolios and the administrator configuration, and
// orchestrates drift checks, trade planning and execution against them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/gateway"
	"github.com/mtlprog/rebalancer/internal/planner"
	"github.com/mtlprog/rebalancer/internal/store"
)

// Service is the portfolio registry. Owner-scoped operations are serialized
// per owner; administrator operations are serialized globally.
type Service struct {
	store  store.Store
	dialer gateway.Dialer
	venue  planner.Venue
	now    func() time.Time

	adminMu sync.Mutex
	owners  *ownerLocks
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for LastRebalance stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a registry over the given store, oracle dialer and venue.
func NewService(st store.Store, dialer gateway.Dialer, venue planner.Venue, opts ...Option) *Service {
	s := &Service{
		store:  st,
		dialer: dialer,
		venue:  venue,
		now:    time.Now,
		owners: newOwnerLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stamp returns the current time at the precision the stores keep.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// requireCaller is the guard every mutating operation runs first.
func requireCaller(caller, required string) error {
	if caller == "" || caller != required {
		return fmt.Errorf("%w: caller %q", domain.ErrUnauthorized, caller)
	}
	return nil
}

// Initialize records the administrator and oracle address once.
func (s *Service) Initialize(ctx context.Context, caller, admin, oracleAddress string) error {
	if err := requireCaller(caller, admin); err != nil {
		return err
	}

	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	if err := s.store.InitConfig(ctx, domain.AdminConfig{Admin: admin, OracleAddress: oracleAddress}); err != nil {
		return err
	}
	slog.Info("rebalancer initialized", "admin", admin, "oracle", oracleAddress)
	return nil
}

// adminConfig loads the config and checks caller is its administrator.
// Callers hold adminMu.
func (s *Service) adminConfig(ctx context.Context, caller string) (domain.AdminConfig, error) {
	cfg, err := s.config(ctx)
	if err != nil {
		return domain.AdminConfig{}, err
	}
	if err := requireCaller(caller, cfg.Admin); err != nil {
		return domain.AdminConfig{}, err
	}
	return cfg, nil
}

func (s *Service) config(ctx context.Context) (domain.AdminConfig, error) {
	cfg, err := s.store.LoadConfig(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AdminConfig{}, domain.ErrNotInitialized
		}
		return domain.AdminConfig{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// UpdateOracleAddress replaces the oracle address. Administrator only.
func (s *Service) UpdateOracleAddress(ctx context.Context, caller, address string) error {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	cfg, err := s.adminConfig(ctx, caller)
	if err != nil {
		return err
	}
	cfg.OracleAddress = address
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	slog.Info("oracle address updated", "oracle", address)
	return nil
}

// UpdateAdmin hands administration to newAdmin. Administrator only.
func (s *Service) UpdateAdmin(ctx context.Context, caller, newAdmin string) error {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	cfg, err := s.adminConfig(ctx, caller)
	if err != nil {
		return err
	}
	if newAdmin == "" {
		return fmt.Errorf("%w: empty administrator", domain.ErrUnauthorized)
	}
	cfg.Admin = newAdmin
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	slog.Info("administrator updated", "admin", newAdmin)
	return nil
}

// AddSupportedAsset registers an asset, replacing any record with the same ID.
func (s *Service) AddSupportedAsset(ctx context.Context, caller string, asset domain.Asset) error {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	if _, err := s.adminConfig(ctx, caller); err != nil {
		return err
	}
	if err := asset.Validate(); err != nil {
		return err
	}
	return s.store.AddAsset(ctx, asset)
}

// OracleAddress returns the configured oracle address.
func (s *Service) OracleAddress(ctx context.Context) (string, error) {
	cfg, err := s.config(ctx)
	if err != nil {
		return "", err
	}
	return cfg.OracleAddress, nil
}

// SupportedAssets returns the registered assets in registration order.
func (s *Service) SupportedAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.store.ListAssets(ctx)
}

// ActiveOwners lists the owners of active portfolios.
func (s *Service) ActiveOwners(ctx context.Context) ([]string, error) {
	return s.store.ListActiveOwners(ctx)
}

// resolveAssets checks allocations against the supported asset list and
// fills in registered symbols. An empty list accepts any asset.
func (s *Service) resolveAssets(ctx context.Context, allocations []domain.Allocation) ([]domain.Allocation, error) {
	supported, err := s.store.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	if len(supported) == 0 {
		return allocations, nil
	}

	byID := lo.KeyBy(supported, func(a domain.Asset) string { return a.ID })
	resolved := make([]domain.Allocation, 0, len(allocations))
	for _, a := range allocations {
		asset, ok := byID[a.Asset.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a supported asset", domain.ErrInvalidAsset, a.Asset.ID)
		}
		resolved = append(resolved, domain.Allocation{Asset: asset, TargetBps: a.TargetBps})
	}
	return resolved, nil
}

// gateway resolves the configured oracle address.
func (s *Service) gateway(ctx context.Context) (gateway.Gateway, error) {
	cfg, err := s.config(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.OracleAddress == "" {
		return nil, fmt.Errorf("%w: no oracle address", domain.ErrNotInitialized)
	}
	return s.dialer.Dial(cfg.OracleAddress)
}
