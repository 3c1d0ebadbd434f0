package domain

import (
	"fmt"
	"strings"
)

// AssetType represents the Stellar asset type classification.
type AssetType string

const (
	AssetTypeNative           AssetType = "native"
	AssetTypeCreditAlphanum4  AssetType = "credit_alphanum4"
	AssetTypeCreditAlphanum12 AssetType = "credit_alphanum12"
)

// NativeAssetID is the canonical identity of XLM.
const NativeAssetID = "native"

// Asset is a supported asset. Immutable once registered.
// ID is the opaque asset identity; Stellar assets use "native" or "CODE:ISSUER".
type Asset struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
}

// IsNative returns true if this asset is the native XLM.
func (a Asset) IsNative() bool {
	return a.ID == NativeAssetID
}

// Code returns the asset code part of a canonical ID, or the symbol for native.
func (a Asset) Code() string {
	if a.IsNative() {
		return "XLM"
	}
	code, _, _ := strings.Cut(a.ID, ":")
	return code
}

// Issuer returns the issuer part of a canonical ID, empty for native or opaque IDs.
func (a Asset) Issuer() string {
	_, issuer, _ := strings.Cut(a.ID, ":")
	return issuer
}

// Type infers the Stellar asset type from the code length.
func (a Asset) Type() AssetType {
	if a.IsNative() {
		return AssetTypeNative
	}
	return AssetTypeFromCode(a.Code())
}

// IsStellarCanonical reports whether the ID is "native" or a well-formed "CODE:ISSUER".
func (a Asset) IsStellarCanonical() bool {
	if a.IsNative() {
		return true
	}
	code, issuer, ok := strings.Cut(a.ID, ":")
	return ok && len(code) >= 1 && len(code) <= 12 && issuer != ""
}

// Validate checks the fields required to register an asset.
func (a Asset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: empty asset id", ErrInvalidAsset)
	}
	if strings.TrimSpace(a.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol for %s", ErrInvalidAsset, a.ID)
	}
	return nil
}

// AssetTypeFromCode determines the Stellar asset type from the code string.
func AssetTypeFromCode(code string) AssetType {
	if code == "XLM" || code == NativeAssetID {
		return AssetTypeNative
	}
	if len(code) <= 4 {
		return AssetTypeCreditAlphanum4
	}
	return AssetTypeCreditAlphanum12
}

// NewAsset creates a Stellar asset with a canonical ID built from code and issuer.
func NewAsset(code, issuer string) Asset {
	if AssetTypeFromCode(code) == AssetTypeNative {
		return NativeAsset()
	}
	return Asset{
		ID:       fmt.Sprintf("%s:%s", code, issuer),
		Symbol:   code,
		Decimals: StellarPrecision,
	}
}

// NativeAsset returns the Stellar native asset.
func NativeAsset() Asset {
	return Asset{ID: NativeAssetID, Symbol: "XLM", Decimals: StellarPrecision}
}

// ParseAssetID parses a canonical asset string ("native", "XLM" or "CODE:ISSUER").
func ParseAssetID(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	if s == NativeAssetID || s == "XLM" {
		return NativeAsset(), nil
	}
	code, issuer, ok := strings.Cut(s, ":")
	if !ok || code == "" || issuer == "" || len(code) > 12 {
		return Asset{}, fmt.Errorf("%w: %q is not CODE:ISSUER", ErrInvalidAsset, s)
	}
	return NewAsset(code, issuer), nil
}
