package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "stellar,usd-coin" {
			t.Errorf("ids = %q, want sorted unique IDs", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Errorf("vs_currencies = %q, want usd", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"stellar": {"usd": 0.1234567},
			"usd-coin": {"usd": 1.0}
		}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 1)
	prices, err := client.FetchPrices(context.Background(), []string{"usd-coin", "stellar", "stellar"}, "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !prices["stellar"].Equal(decimal.RequireFromString("0.1234567")) {
		t.Errorf("stellar = %s, want 0.1234567 without float rounding", prices["stellar"])
	}
	if !prices["usd-coin"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("usd-coin = %s, want 1", prices["usd-coin"])
	}
}

func TestFetchPricesOmitsUnknownIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stellar": {"usd": 0.1}, "usd-coin": {"eur": 0.9}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 1)
	prices, err := client.FetchPrices(context.Background(), []string{"stellar", "usd-coin", "unknown-coin"}, "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 1 {
		t.Errorf("prices = %v, want only stellar", prices)
	}
	if _, ok := prices["unknown-coin"]; ok {
		t.Error("unknown coin present in result")
	}
}

func TestFetchPricesNoIDs(t *testing.T) {
	client := NewCoinGeckoClient("http://127.0.0.1:0", 0, 0)
	prices, err := client.FetchPrices(context.Background(), nil, "usd")
	if err != nil || len(prices) != 0 {
		t.Errorf("FetchPrices(nil) = %v, %v, want empty without a request", prices, err)
	}
}

func TestCoinID(t *testing.T) {
	if id, ok := CoinID("xlm"); !ok || id != "stellar" {
		t.Errorf("CoinID(xlm) = %q, %v", id, ok)
	}
	if id, ok := CoinID("yXLM"); !ok || id != "stellar" {
		t.Errorf("CoinID(yXLM) = %q, %v", id, ok)
	}
	if id, ok := CoinID("USDT"); !ok || id != "tether" {
		t.Errorf("CoinID(USDT) = %q, %v", id, ok)
	}
	if _, ok := CoinID("NOPE"); ok {
		t.Error("CoinID(NOPE) found a mapping")
	}
}

func TestFetchPricesRetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin": {"usd": 55000}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 10*time.Millisecond, 2)
	prices, err := client.FetchPrices(context.Background(), []string{"bitcoin"}, "usd")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if !prices["bitcoin"].Equal(decimal.NewFromInt(55000)) {
		t.Errorf("bitcoin = %s, want 55000", prices["bitcoin"])
	}
}

func TestFetchPricesContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	client := NewCoinGeckoClient(server.URL, 0, 1)
	_, err := client.FetchPrices(ctx, []string{"stellar"}, "usd")
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
