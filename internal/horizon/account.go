package horizon

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// FetchAccount retrieves a Stellar account's details including balances.
func (c *Client) FetchAccount(ctx context.Context, accountID string) (HorizonAccount, error) {
	var account HorizonAccount
	if err := c.getJSON(ctx, fmt.Sprintf("/accounts/%s", accountID), &account); err != nil {
		return HorizonAccount{}, fmt.Errorf("fetching account %s: %w", accountID, err)
	}
	return account, nil
}

// FetchBalances returns every asset balance of the account in stroops, keyed by
// canonical asset ID ("native" or "CODE:ISSUER"). Liquidity pool shares are skipped.
func (c *Client) FetchBalances(ctx context.Context, accountID string) (map[string]uint64, error) {
	account, err := c.FetchAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]uint64, len(account.Balances))
	for _, b := range account.Balances {
		var id string
		switch {
		case b.AssetType == string(domain.AssetTypeNative):
			id = domain.NativeAssetID
		case b.AssetCode != "" && b.AssetIssuer != "":
			id = b.AssetCode + ":" + b.AssetIssuer
		default:
			continue
		}
		amount, err := domain.ParseStroops(b.Balance)
		if err != nil {
			return nil, fmt.Errorf("parsing balance for %s: %w", id, err)
		}
		balances[id] = amount
	}
	return balances, nil
}

// FetchBalance returns the balance of the asset held by the account, in stroops.
// Returns ErrNotFound if the account does not exist or holds no trustline for the asset.
func (c *Client) FetchBalance(ctx context.Context, accountID string, asset domain.Asset) (uint64, error) {
	account, err := c.FetchAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	balance, ok := lo.Find(account.Balances, func(b HorizonBalance) bool {
		if asset.IsNative() {
			return b.AssetType == string(domain.AssetTypeNative)
		}
		return b.AssetCode == asset.Code() && b.AssetIssuer == asset.Issuer()
	})
	if !ok {
		return 0, fmt.Errorf("%w: %s holds no %s", ErrNotFound, accountID, asset.ID)
	}

	amount, err := domain.ParseStroops(balance.Balance)
	if err != nil {
		return 0, fmt.Errorf("parsing balance for %s: %w", asset.ID, err)
	}
	return amount, nil
}
