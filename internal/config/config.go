package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// DefaultQuoteAsset is the valuation currency when QUOTE_ASSET is unset.
const DefaultQuoteAsset = "USDC:GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HorizonURL              string
	HorizonRetryMax         int
	HorizonRetryBaseDelay   time.Duration
	DatabaseURL             string
	HTTPPort                string
	AdminAPIKey             string
	QuoteAsset              string
	VenueURL                string
	VenueRetryMax           int
	VenueRetryBaseDelay     time.Duration
	RebalanceWorkerInterval time.Duration
	CoinGeckoURL            string
	CoinGeckoDelay          time.Duration
	CoinGeckoRetryMax       int
	SheetsSpreadsheetID     string
	GoogleCredentialsJSON   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		HorizonURL:              envOrDefault("HORIZON_URL", "https://horizon.stellar.org"),
		HorizonRetryMax:         envOrDefaultInt("HORIZON_RETRY_MAX", 5),
		HorizonRetryBaseDelay:   envOrDefaultDuration("HORIZON_RETRY_BASE_DELAY", 2*time.Second),
		DatabaseURL:             envOrDefaultWarn("DATABASE_URL", "", "portfolios are kept in memory"),
		HTTPPort:                envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:             envOrDefaultWarn("ADMIN_API_KEY", "", "mutating routes are unauthenticated"),
		QuoteAsset:              envOrDefault("QUOTE_ASSET", DefaultQuoteAsset),
		VenueURL:                envOrDefaultWarn("VENUE_URL", "", "trades go to the stub venue"),
		VenueRetryMax:           envOrDefaultInt("VENUE_RETRY_MAX", 3),
		VenueRetryBaseDelay:     envOrDefaultDuration("VENUE_RETRY_BASE_DELAY", time.Second),
		RebalanceWorkerInterval: envOrDefaultDuration("REBALANCE_WORKER_INTERVAL", 24*time.Hour),
		CoinGeckoURL:            envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:          envOrDefaultDuration("COINGECKO_DELAY", 10*time.Second),
		CoinGeckoRetryMax:       envOrDefaultInt("COINGECKO_RETRY_MAX", 3),
		SheetsSpreadsheetID:     envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		GoogleCredentialsJSON:   envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

// SheetsEnabled reports whether both Sheets export settings are present.
func (c Config) SheetsEnabled() bool {
	return c.SheetsSpreadsheetID != "" && c.GoogleCredentialsJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal, consequence string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("env var not set", "key", key, "effect", consequence)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
