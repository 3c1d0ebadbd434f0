package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized        = errors.New("not initialized")
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidAllocation     = errors.New("invalid allocation")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidAsset          = errors.New("invalid asset")
	ErrSwapFailed            = errors.New("swap failed")
	ErrInvalidDriftThreshold = errors.New("invalid drift threshold")
	ErrNoRebalanceNeeded     = errors.New("no rebalance needed")
	ErrOracle                = errors.New("oracle error")
)

// ErrZeroTotalValue is returned when every allocated asset values to zero,
// which leaves current percentages undefined.
var ErrZeroTotalValue = fmt.Errorf("%w: total portfolio value is zero", ErrOracle)

// ErrOverflow is returned when a fixed-point product does not fit in 64 bits.
var ErrOverflow = fmt.Errorf("%w: fixed-point overflow", ErrOracle)

// errorCodes keeps the numeric codes stable for API clients.
var errorCodes = []struct {
	err  error
	code int
	name string
}{
	{ErrNotInitialized, 1, "NotInitialized"},
	{ErrAlreadyInitialized, 2, "AlreadyInitialized"},
	{ErrUnauthorized, 3, "Unauthorized"},
	{ErrInvalidAllocation, 4, "InvalidAllocation"},
	{ErrInsufficientBalance, 5, "InsufficientBalance"},
	{ErrInvalidAsset, 6, "InvalidAsset"},
	{ErrSwapFailed, 7, "SwapFailed"},
	{ErrInvalidDriftThreshold, 8, "InvalidDriftThreshold"},
	{ErrNoRebalanceNeeded, 9, "NoRebalanceNeeded"},
	{ErrOracle, 10, "OracleError"},
}

// Code returns the numeric code and name of the first taxonomy error wrapped by err.
// Returns 0 and "" for errors outside the taxonomy.
func Code(err error) (int, string) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code, c.name
		}
	}
	return 0, ""
}
