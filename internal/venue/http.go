package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/rebalancer/internal/domain"
)

// TradeRequest is the JSON body posted to the execution venue.
type TradeRequest struct {
	Owner  string      `json:"owner"`
	Asset  string      `json:"asset"`
	Symbol string      `json:"symbol"`
	Amount string      `json:"amount"`
	Side   domain.Side `json:"side"`
}

// TradeResponse is the venue's verdict on a trade.
// Code optionally names a venue-level failure: InvalidAsset, InsufficientBalance or SwapFailed.
type TradeResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

var failureCodes = map[string]error{
	"InvalidAsset":        domain.ErrInvalidAsset,
	"InsufficientBalance": domain.ErrInsufficientBalance,
	"SwapFailed":          domain.ErrSwapFailed,
}

// HTTP submits trades to an execution service over JSON/HTTP with retry on 429.
type HTTP struct {
	url        string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewHTTP creates a venue client posting to url.
func NewHTTP(url string, maxRetries int, baseDelay time.Duration) *HTTP {
	return &HTTP{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Execute posts one trade. A venue-reported failure returns false with the mapped error.
func (v *HTTP) Execute(ctx context.Context, owner string, asset domain.Asset, amount uint64, isSell bool) (bool, error) {
	side := domain.SideBuy
	if isSell {
		side = domain.SideSell
	}
	body, err := json.Marshal(TradeRequest{
		Owner:  owner,
		Asset:  asset.ID,
		Symbol: asset.Symbol,
		Amount: domain.FormatStroops(amount),
		Side:   side,
	})
	if err != nil {
		return false, fmt.Errorf("encoding trade: %w", err)
	}

	respBody, err := v.postWithRetry(ctx, body, uuid.NewString())
	if err != nil {
		return false, err
	}

	var resp TradeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return false, fmt.Errorf("parsing venue response: %w", err)
	}
	if resp.Success {
		return true, nil
	}
	if mapped, ok := failureCodes[resp.Code]; ok {
		return false, fmt.Errorf("%w: %s", mapped, resp.Message)
	}
	return false, nil
}

// postWithRetry sends the same idempotency key on every attempt so a retried
// request cannot settle twice.
func (v *HTTP) postWithRetry(ctx context.Context, body []byte, idempotencyKey string) ([]byte, error) {
	var lastErr error
	for attempt := range v.maxRetries + 1 {
		if attempt > 0 {
			delay := v.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating venue request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", idempotencyKey)

		resp, err := v.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("venue request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading venue response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("venue rate limited (attempt %d/%d)", attempt+1, v.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("venue HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return nil, lastErr
}
