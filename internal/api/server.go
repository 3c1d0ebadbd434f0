package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/rebalancer/internal/registry"
)

// NewServer creates an HTTP server with all routes configured.
// When adminAPIKey is set, every mutating route requires it as a bearer token.
func NewServer(port string, reg *registry.Service, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(reg, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers the API routes.
func NewMux(reg *registry.Service, adminAPIKey string) *http.ServeMux {
	h := NewHandler(reg)

	mutating := func(fn http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return fn
		}
		return requireAuth(adminAPIKey, fn)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/admin/initialize", mutating(h.Initialize))
	mux.Handle("POST /api/v1/admin/assets", mutating(h.AddAsset))
	mux.Handle("PUT /api/v1/admin/oracle", mutating(h.UpdateOracle))
	mux.Handle("PUT /api/v1/admin/administrator", mutating(h.UpdateAdmin))
	mux.HandleFunc("GET /api/v1/assets", h.ListAssets)
	mux.HandleFunc("GET /api/v1/oracle", h.GetOracle)

	mux.Handle("POST /api/v1/portfolios/{owner}", mutating(h.CreatePortfolio))
	mux.HandleFunc("GET /api/v1/portfolios/{owner}", h.GetPortfolio)
	mux.Handle("PUT /api/v1/portfolios/{owner}/allocations", mutating(h.UpdateAllocations))
	mux.Handle("PUT /api/v1/portfolios/{owner}/threshold", mutating(h.UpdateThreshold))
	mux.Handle("PUT /api/v1/portfolios/{owner}/active", mutating(h.SetActive))
	mux.HandleFunc("GET /api/v1/portfolios/{owner}/status", h.GetStatus)
	mux.HandleFunc("GET /api/v1/portfolios/{owner}/drift", h.GetDrift)
	mux.HandleFunc("GET /api/v1/portfolios/{owner}/plan", h.GetPlan)
	mux.Handle("POST /api/v1/portfolios/{owner}/rebalance", mutating(h.Rebalance))

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
