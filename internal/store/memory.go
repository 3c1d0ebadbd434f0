package store

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	config     *domain.AdminConfig
	assets     []domain.Asset
	portfolios map[string]domain.Portfolio
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{portfolios: make(map[string]domain.Portfolio)}
}

func (s *MemoryStore) LoadConfig(_ context.Context) (domain.AdminConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return domain.AdminConfig{}, ErrNotFound
	}
	return *s.config, nil
}

func (s *MemoryStore) InitConfig(_ context.Context, cfg domain.AdminConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return domain.ErrAlreadyInitialized
	}
	s.config = &cfg
	return nil
}

func (s *MemoryStore) SaveConfig(_ context.Context, cfg domain.AdminConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = &cfg
	return nil
}

func (s *MemoryStore) ListAssets(_ context.Context) ([]domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.assets), nil
}

func (s *MemoryStore) AddAsset(_ context.Context, asset domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, idx, ok := lo.FindIndexOf(s.assets, func(a domain.Asset) bool { return a.ID == asset.ID }); ok {
		s.assets[idx] = asset
		return nil
	}
	s.assets = append(s.assets, asset)
	return nil
}

func (s *MemoryStore) GetPortfolio(_ context.Context, owner string) (domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[owner]
	if !ok {
		return domain.Portfolio{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) SavePortfolio(_ context.Context, p domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[p.Owner] = p.Clone()
	return nil
}

func (s *MemoryStore) ListActiveOwners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := lo.FilterMap(lo.Values(s.portfolios), func(p domain.Portfolio, _ int) (string, bool) {
		return p.Owner, p.Active
	})
	slices.Sort(owners)
	return owners, nil
}
