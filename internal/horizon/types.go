package horizon

// HorizonAccount represents the JSON response from GET /accounts/{id}.
type HorizonAccount struct {
	ID       string           `json:"id"`
	Balances []HorizonBalance `json:"balances"`
}

// HorizonBalance represents a single balance entry in an account response.
type HorizonBalance struct {
	AssetType       string `json:"asset_type"`
	AssetCode       string `json:"asset_code"`
	AssetIssuer     string `json:"asset_issuer"`
	Balance         string `json:"balance"`
	LiquidityPoolID string `json:"liquidity_pool_id,omitempty"`
}

// HorizonOrderbook represents the JSON response from GET /order_book.
type HorizonOrderbook struct {
	Bids []HorizonOrderbookEntry `json:"bids"`
	Asks []HorizonOrderbookEntry `json:"asks"`
}

// HorizonOrderbookEntry represents a single bid or ask in an orderbook.
type HorizonOrderbookEntry struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}
