package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/gateway"
	"github.com/mtlprog/rebalancer/internal/registry"
	"github.com/mtlprog/rebalancer/internal/store"
	"github.com/mtlprog/rebalancer/internal/venue"
)

const (
	admin = "GADMIN"
	owner = "GOWNER"
	usdc  = "USDC:GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"
)

func newTestMux(t *testing.T, apiKey string) (*http.ServeMux, *gateway.Static) {
	t.Helper()

	gw := gateway.NewStatic(time.Unix(1700000000, 0)).
		SetPrice(domain.NativeAssetID, domain.Scale).
		SetPrice(usdc, domain.Scale)
	reg := registry.NewService(store.NewMemoryStore(), gateway.Fixed{Gateway: gw}, venue.NewStub(true))
	return NewMux(reg, apiKey), gw
}

func do(t *testing.T, mux http.Handler, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set(CallerHeader, caller)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding body %q: %v", w.Body.String(), err)
	}
	return v
}

const halfAndHalf = `{"allocations":[{"asset":"native","targetBps":5000},{"asset":"` + usdc + `","targetBps":5000}],"driftThreshold":100}`

func TestInitializeAndOracle(t *testing.T) {
	mux, _ := newTestMux(t, "")

	w := do(t, mux, http.MethodGet, "/api/v1/oracle", "", "")
	if w.Code != http.StatusConflict {
		t.Errorf("oracle before init status = %d, want 409", w.Code)
	}

	w = do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("initialize status = %d, body %s", w.Code, w.Body.String())
	}

	w = do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("second initialize status = %d, want 409", w.Code)
	}
	if body := decodeBody[map[string]string](t, w); body["code"] != "AlreadyInitialized" {
		t.Errorf("code = %q, want AlreadyInitialized", body["code"])
	}

	w = do(t, mux, http.MethodPut, "/api/v1/admin/oracle", owner, `{"address":"fallback"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin oracle update status = %d, want 403", w.Code)
	}

	w = do(t, mux, http.MethodGet, "/api/v1/oracle", "", "")
	if body := decodeBody[map[string]string](t, w); body["oracleAddress"] != "static" {
		t.Errorf("oracle = %v", body)
	}
}

func TestAddAndListAssets(t *testing.T) {
	mux, _ := newTestMux(t, "")
	do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)

	w := do(t, mux, http.MethodGet, "/api/v1/assets", "", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty asset list body = %s, want []", w.Body.String())
	}

	w = do(t, mux, http.MethodPost, "/api/v1/admin/assets", admin, `{"id":"`+usdc+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add asset status = %d, body %s", w.Code, w.Body.String())
	}
	w = do(t, mux, http.MethodPost, "/api/v1/admin/assets", admin, `{"id":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty asset status = %d, want 400", w.Code)
	}

	assets := decodeBody[[]domain.Asset](t, do(t, mux, http.MethodGet, "/api/v1/assets", "", ""))
	if len(assets) != 1 || assets[0].Symbol != "USDC" || assets[0].Decimals != 7 {
		t.Errorf("assets = %+v", assets)
	}
}

func TestPortfolioLifecycle(t *testing.T) {
	mux, gw := newTestMux(t, "")
	do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)
	gw.SetBalance(owner, domain.NativeAssetID, 100*domain.Scale)

	w := do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner, "GINTRUDER", halfAndHalf)
	if w.Code != http.StatusForbidden {
		t.Errorf("create by intruder status = %d, want 403", w.Code)
	}

	w = do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner, owner,
		`{"allocations":[{"asset":"native","targetBps":5000}],"driftThreshold":100}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad allocation status = %d, want 400", w.Code)
	}
	if body := decodeBody[map[string]string](t, w); body["code"] != "InvalidAllocation" {
		t.Errorf("code = %q, want InvalidAllocation", body["code"])
	}

	w = do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner, owner, halfAndHalf)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	report := decodeBody[map[string]any](t, do(t, mux, http.MethodGet, "/api/v1/portfolios/"+owner+"/drift", "", ""))
	if report["needed"] != true {
		t.Errorf("drift = %v, want needed", report)
	}

	plan := decodeBody[[]domain.TradeIntent](t, do(t, mux, http.MethodGet, "/api/v1/portfolios/"+owner+"/plan", "", ""))
	if len(plan) != 2 || plan[0].Side != domain.SideSell {
		t.Errorf("plan = %+v", plan)
	}

	w = do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner+"/rebalance", owner, "")
	if w.Code != http.StatusOK {
		t.Fatalf("rebalance status = %d, body %s", w.Code, w.Body.String())
	}
	result := decodeBody[domain.RebalanceResult](t, w)
	if result.TradesExecuted != 2 {
		t.Errorf("result = %+v, want 2 trades executed", result)
	}

	w = do(t, mux, http.MethodPut, "/api/v1/portfolios/"+owner+"/active", owner, `{"active":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set active status = %d", w.Code)
	}
	w = do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner+"/rebalance", owner, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("rebalance inactive status = %d, want 403", w.Code)
	}

	w = do(t, mux, http.MethodPut, "/api/v1/portfolios/"+owner+"/threshold", owner, `{"driftThreshold":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero threshold status = %d, want 400", w.Code)
	}
}

func TestRebalanceAtTargetConflict(t *testing.T) {
	mux, gw := newTestMux(t, "")
	do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)
	gw.SetBalance(owner, domain.NativeAssetID, 5*domain.Scale).SetBalance(owner, usdc, 5*domain.Scale)
	do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner, owner, halfAndHalf)

	w := do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner+"/rebalance", owner, "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if body := decodeBody[map[string]string](t, w); body["code"] != "NoRebalanceNeeded" {
		t.Errorf("code = %q, want NoRebalanceNeeded", body["code"])
	}
}

func TestStatusZeroValueIsBadGateway(t *testing.T) {
	mux, _ := newTestMux(t, "")
	do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)
	do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner, owner, halfAndHalf)

	w := do(t, mux, http.MethodGet, "/api/v1/portfolios/"+owner+"/status", "", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestUnknownPortfolioForbidden(t *testing.T) {
	mux, _ := newTestMux(t, "")

	w := do(t, mux, http.MethodGet, "/api/v1/portfolios/GNOBODY", "", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	mux, _ := newTestMux(t, "")

	w := do(t, mux, http.MethodPost, "/api/v1/portfolios/"+owner, owner, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMutatingRoutesRequireAPIKey(t *testing.T) {
	mux, _ := newTestMux(t, "secret-key")

	w := do(t, mux, http.MethodPost, "/api/v1/admin/initialize", admin, `{"admin":"GADMIN","oracleAddress":"static"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/initialize",
		strings.NewReader(`{"admin":"GADMIN","oracleAddress":"static"}`))
	req.Header.Set(CallerHeader, admin)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("status with key = %d, want 201", rec.Code)
	}

	w = do(t, mux, http.MethodGet, "/api/v1/oracle", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("read route status = %d, want 200 without key", w.Code)
	}
}

func TestStatusForUnknownErrorIsInternal(t *testing.T) {
	if got := statusFor(context.DeadlineExceeded); got != http.StatusInternalServerError {
		t.Errorf("statusFor() = %d, want 500", got)
	}
}
