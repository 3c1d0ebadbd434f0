package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// PgStore implements Store with PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) LoadConfig(ctx context.Context) (domain.AdminConfig, error) {
	var cfg domain.AdminConfig
	err := s.pool.QueryRow(ctx,
		`SELECT admin, oracle_address FROM rebalancer_config WHERE id = 1`).Scan(&cfg.Admin, &cfg.OracleAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AdminConfig{}, ErrNotFound
		}
		return domain.AdminConfig{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (s *PgStore) InitConfig(ctx context.Context, cfg domain.AdminConfig) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO rebalancer_config (id, admin, oracle_address)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		cfg.Admin, cfg.OracleAddress)
	if err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func (s *PgStore) SaveConfig(ctx context.Context, cfg domain.AdminConfig) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rebalancer_config (id, admin, oracle_address)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id)
		 DO UPDATE SET admin = $1, oracle_address = $2, updated_at = NOW()`,
		cfg.Admin, cfg.OracleAddress)
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func (s *PgStore) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT asset_id, symbol, decimals FROM supported_assets ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		var decimals int32
		if err := rows.Scan(&a.ID, &a.Symbol, &decimals); err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		a.Decimals = uint32(decimals)
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}
	return assets, nil
}

func (s *PgStore) AddAsset(ctx context.Context, asset domain.Asset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO supported_assets (asset_id, symbol, decimals)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (asset_id)
		 DO UPDATE SET symbol = $2, decimals = $3`,
		asset.ID, asset.Symbol, int32(asset.Decimals))
	if err != nil {
		return fmt.Errorf("adding asset %s: %w", asset.ID, err)
	}
	return nil
}

func (s *PgStore) GetPortfolio(ctx context.Context, owner string) (domain.Portfolio, error) {
	var p domain.Portfolio
	var allocations []byte
	var threshold int32
	err := s.pool.QueryRow(ctx,
		`SELECT owner, allocations, drift_threshold, last_rebalance, active
		 FROM portfolios WHERE owner = $1`, owner).Scan(&p.Owner, &allocations, &threshold, &p.LastRebalance, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Portfolio{}, ErrNotFound
		}
		return domain.Portfolio{}, fmt.Errorf("getting portfolio %s: %w", owner, err)
	}
	if err := json.Unmarshal(allocations, &p.Allocations); err != nil {
		return domain.Portfolio{}, fmt.Errorf("decoding allocations of %s: %w", owner, err)
	}
	p.DriftThreshold = uint32(threshold)
	return p, nil
}

func (s *PgStore) SavePortfolio(ctx context.Context, p domain.Portfolio) error {
	allocations, err := json.Marshal(p.Allocations)
	if err != nil {
		return fmt.Errorf("encoding allocations of %s: %w", p.Owner, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO portfolios (owner, allocations, drift_threshold, last_rebalance, active)
		 VALUES ($1, $2::jsonb, $3, $4, $5)
		 ON CONFLICT (owner)
		 DO UPDATE SET allocations = $2::jsonb, drift_threshold = $3, last_rebalance = $4, active = $5, updated_at = NOW()`,
		p.Owner, allocations, int32(p.DriftThreshold), p.LastRebalance, p.Active)
	if err != nil {
		return fmt.Errorf("saving portfolio %s: %w", p.Owner, err)
	}
	return nil
}

func (s *PgStore) ListActiveOwners(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner FROM portfolios WHERE active ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("listing active portfolios: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning active portfolios: %w", err)
	}
	return owners, nil
}
