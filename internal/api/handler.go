package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/registry"
)

// CallerHeader carries the identity the upstream identity system authenticated.
const CallerHeader = "X-Caller"

// Handler provides HTTP endpoints over the portfolio registry.
type Handler struct {
	registry *registry.Service
}

// NewHandler creates a new API handler.
func NewHandler(reg *registry.Service) *Handler {
	return &Handler{registry: reg}
}

type initializeRequest struct {
	Admin         string `json:"admin"`
	OracleAddress string `json:"oracleAddress"`
}

type assetRequest struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Decimals *uint32 `json:"decimals"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type allocationRequest struct {
	Asset     string `json:"asset"`
	TargetBps uint32 `json:"targetBps"`
}

type portfolioRequest struct {
	Allocations    []allocationRequest `json:"allocations"`
	DriftThreshold uint32              `json:"driftThreshold"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

// Initialize handles POST /api/v1/admin/initialize.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.registry.Initialize(r.Context(), caller(r), req.Admin, req.OracleAddress); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.AdminConfig{Admin: req.Admin, OracleAddress: req.OracleAddress})
}

// AddAsset handles POST /api/v1/admin/assets.
func (h *Handler) AddAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !decode(w, r, &req) {
		return
	}
	asset := assetFromID(req.ID)
	if req.Symbol != "" {
		asset.Symbol = req.Symbol
	}
	if req.Decimals != nil {
		asset.Decimals = *req.Decimals
	}
	if err := h.registry.AddSupportedAsset(r.Context(), caller(r), asset); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// ListAssets handles GET /api/v1/assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.registry.SupportedAssets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Ternary(assets == nil, []domain.Asset{}, assets))
}

// UpdateOracle handles PUT /api/v1/admin/oracle.
func (h *Handler) UpdateOracle(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.registry.UpdateOracleAddress(r.Context(), caller(r), req.Address); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"oracleAddress": req.Address})
}

// UpdateAdmin handles PUT /api/v1/admin/administrator.
func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.registry.UpdateAdmin(r.Context(), caller(r), req.Address); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"admin": req.Address})
}

// GetOracle handles GET /api/v1/oracle.
func (h *Handler) GetOracle(w http.ResponseWriter, r *http.Request) {
	addr, err := h.registry.OracleAddress(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"oracleAddress": addr})
}

// CreatePortfolio handles POST /api/v1/portfolios/{owner}.
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.registry.Create(r.Context(), caller(r), r.PathValue("owner"), allocations(req.Allocations), req.DriftThreshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPortfolio handles GET /api/v1/portfolios/{owner}.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.Portfolio(r.Context(), r.PathValue("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateAllocations handles PUT /api/v1/portfolios/{owner}/allocations.
func (h *Handler) UpdateAllocations(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.registry.UpdateAllocations(r.Context(), caller(r), r.PathValue("owner"), allocations(req.Allocations))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateThreshold handles PUT /api/v1/portfolios/{owner}/threshold.
func (h *Handler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.registry.UpdateDriftThreshold(r.Context(), caller(r), r.PathValue("owner"), req.DriftThreshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetActive handles PUT /api/v1/portfolios/{owner}/active.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.registry.SetActive(r.Context(), caller(r), r.PathValue("owner"), req.Active)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetStatus handles GET /api/v1/portfolios/{owner}/status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.registry.Status(r.Context(), r.PathValue("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetDrift handles GET /api/v1/portfolios/{owner}/drift.
func (h *Handler) GetDrift(w http.ResponseWriter, r *http.Request) {
	report, err := h.registry.NeedsRebalancing(r.Context(), r.PathValue("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetPlan handles GET /api/v1/portfolios/{owner}/plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	intents, err := h.registry.Preview(r.Context(), r.PathValue("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intents)
}

// Rebalance handles POST /api/v1/portfolios/{owner}/rebalance.
func (h *Handler) Rebalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.registry.Rebalance(r.Context(), caller(r), r.PathValue("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func caller(r *http.Request) string {
	return r.Header.Get(CallerHeader)
}

// assetFromID accepts Stellar identities and keeps any other ID opaque.
func assetFromID(id string) domain.Asset {
	if asset, err := domain.ParseAssetID(id); err == nil {
		return asset
	}
	return domain.Asset{ID: id, Symbol: id, Decimals: domain.StellarPrecision}
}

func allocations(reqs []allocationRequest) []domain.Allocation {
	return lo.Map(reqs, func(a allocationRequest, _ int) domain.Allocation {
		return domain.Allocation{Asset: assetFromID(a.Asset), TargetBps: a.TargetBps}
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrNoRebalanceNeeded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAllocation),
		errors.Is(err, domain.ErrInvalidDriftThreshold),
		errors.Is(err, domain.ErrInvalidAsset):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOracle):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	_, name := domain.Code(err)
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": name})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
