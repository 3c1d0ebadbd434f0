package horizon

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// FetchOrderbook retrieves the orderbook for a trading pair.
func (c *Client) FetchOrderbook(ctx context.Context, selling, buying domain.Asset, limit int) (HorizonOrderbook, error) {
	params := url.Values{}
	setAssetParams(params, "selling", selling)
	setAssetParams(params, "buying", buying)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var ob HorizonOrderbook
	if err := c.getJSON(ctx, "/order_book?"+params.Encode(), &ob); err != nil {
		return HorizonOrderbook{}, fmt.Errorf("fetching orderbook: %w", err)
	}
	return ob, nil
}

// FetchBestBid returns the highest bid for selling one unit of `selling` for `buying`.
// Returns ErrNotFound when the book has no bids.
func (c *Client) FetchBestBid(ctx context.Context, selling, buying domain.Asset) (decimal.Decimal, error) {
	ob, err := c.FetchOrderbook(ctx, selling, buying, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(ob.Bids) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no bids for %s/%s", ErrNotFound, selling.ID, buying.ID)
	}

	price, err := decimal.NewFromString(ob.Bids[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing bid price %q: %w", ob.Bids[0].Price, err)
	}
	return price, nil
}

func setAssetParams(params url.Values, side string, asset domain.Asset) {
	if asset.IsNative() {
		params.Set(side+"_asset_type", string(domain.AssetTypeNative))
		return
	}
	params.Set(side+"_asset_type", string(asset.Type()))
	params.Set(side+"_asset_code", asset.Code())
	params.Set(side+"_asset_issuer", asset.Issuer())
}
