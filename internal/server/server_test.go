package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/icms-educacional/internal/dashboard"
	"github.com/iwvelando/icms-educacional/pkg/dataset"
	"github.com/iwvelando/icms-educacional/pkg/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), testutil.StateTable(t), cfg, "1.2.3")
}

func serve(t *testing.T, handler http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHandleVersion(t *testing.T) {
	rr := serve(t, newTestHandler(t, nil), http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}
}

func TestHandleVersionDefaultsToDev(t *testing.T) {
	table, err := dataset.NewTable(nil)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	rr := serve(t, NewHandler(nil, table, nil, "  "), http.MethodGet, "/api/version", nil)
	if !strings.Contains(rr.Body.String(), `"dev"`) {
		t.Fatalf("expected dev version, got %s", rr.Body.String())
	}
}

func TestHandleMunicipalitiesAndYears(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := serve(t, handler, http.MethodGet, "/api/municipalities", nil)
	var names map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &names); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(names["municipalities"]) != 6 || names["municipalities"][0] != "Afonso Cláudio" {
		t.Fatalf("unexpected municipalities: %v", names["municipalities"])
	}

	rr = serve(t, handler, http.MethodGet, "/api/years", nil)
	var years map[string][]int
	if err := json.Unmarshal(rr.Body.Bytes(), &years); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(years["transferYears"]) != 2 || years["transferYears"][1] != 2026 {
		t.Fatalf("unexpected years: %v", years)
	}
}

func TestHandleExecutive(t *testing.T) {
	rr := serve(t, newTestHandler(t, nil), http.MethodGet, "/api/executive?municipality=vitoria&year=2024&compareYear=2023", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var view dashboard.ExecutiveView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Municipality != "Vitória" {
		t.Errorf("expected Vitória, got %q", view.Municipality)
	}
	if view.Reference.Position.Number != 2 || view.Reference.Total != 5 {
		t.Errorf("unexpected reference position %v of %d", view.Reference.Position, view.Reference.Total)
	}
	if math.Abs(view.RevenueDelta.Absolute.Number-100000) > 1e-6 {
		t.Errorf("unexpected revenue delta %v", view.RevenueDelta.Absolute)
	}
}

func TestHandleExecutiveErrors(t *testing.T) {
	handler := newTestHandler(t, nil)
	tests := []struct {
		target string
		status int
	}{
		{"/api/executive?municipality=Linhares", http.StatusNotFound},
		{"/api/executive?municipality=Vit%C3%B3ria&year=abc", http.StatusBadRequest},
		{"/api/executive?municipality=Vit%C3%B3ria&year=2023", http.StatusUnprocessableEntity},
		{"/api/executive?municipality=Vit%C3%B3ria&year=2024&compareYear=1999", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := serve(t, handler, http.MethodGet, tt.target, nil)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Fatalf("expected error body, got %s", rr.Body.String())
			}
		})
	}
}

func TestHandleIndicator(t *testing.T) {
	rr := serve(t, newTestHandler(t, nil), http.MethodGet, "/api/indicator?municipality=Vit%C3%B3ria", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var view dashboard.IndicatorView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.ReferenceYear != 2024 || len(view.Indicators) != 4 {
		t.Fatalf("unexpected indicator view: %+v", view)
	}
	if view.Trend == nil || view.Trend.Direction != "alta" {
		t.Fatalf("expected rising trend, got %+v", view.Trend)
	}
}

func TestHandleRanking(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := serve(t, handler, http.MethodGet, "/api/ranking?year=2024&metric=icms", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Field   string `json:"field"`
		Entries []struct {
			Position     int    `json:"position"`
			Municipality string `json:"municipality"`
		} `json:"entries"`
		Summary struct {
			Count int `json:"count"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Field != dataset.ColumnEstimatedRevenue || len(resp.Entries) != 5 || resp.Summary.Count != 5 {
		t.Fatalf("unexpected ranking: %+v", resp)
	}
	if resp.Entries[0].Municipality != "Vila Velha" {
		t.Fatalf("expected Vila Velha first, got %s", resp.Entries[0].Municipality)
	}

	rr = serve(t, handler, http.MethodGet, "/api/ranking?year=2024&metric=icms&limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp.Entries = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Entries) != 2 || resp.Entries[1].Position != 2 || resp.Summary.Count != 5 {
		t.Fatalf("unexpected limited ranking: %+v", resp)
	}

	rr = serve(t, handler, http.MethodGet, "/api/ranking?limit=ten", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid limit, got %d", rr.Code)
	}

	rr = serve(t, handler, http.MethodGet, "/api/ranking?metric=xyz", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown metric, got %d", rr.Code)
	}
}

func TestHandleSimulate(t *testing.T) {
	body := []byte(`{
		"municipality": "Vitória",
		"year": 2024,
		"scenarios": [
			{"name": "Meta", "mode": "composed", "formation": 0.85, "participation": 0.85, "equity": 0.85},
			{"name": "Direto", "mode": "direct", "index": 0.9}
		]
	}`)
	rr := serve(t, newTestHandler(t, nil), http.MethodPost, "/api/simulate", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var view dashboard.SimulationView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(view.Scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(view.Scenarios))
	}
	if !view.Model.RSquared.Defined() {
		t.Fatalf("expected R² alongside the estimates")
	}
	if view.TransferYear != 2026 {
		t.Fatalf("expected transfer year 2026, got %d", view.TransferYear)
	}
}

func TestHandleSimulatePartialScenario(t *testing.T) {
	body := []byte(`{
		"municipality": "Vitória",
		"year": 2024,
		"scenarios": [{"name": "Parcial", "mode": "composed", "formation": 0.9}]
	}`)
	rr := serve(t, newTestHandler(t, nil), http.MethodPost, "/api/simulate", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var view dashboard.SimulationView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(view.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(view.Scenarios))
	}
	got := view.Scenarios[0]
	if got.Simulated.Index.Defined() || got.Simulated.Revenue.Defined() {
		t.Fatalf("expected undefined simulation for omitted sub-indicators, got %+v", got.Simulated)
	}
	if got.RevenueDelta.Absolute.Defined() {
		t.Fatalf("expected undefined revenue delta, got %v", got.RevenueDelta.Absolute)
	}
	if !strings.Contains(rr.Body.String(), `"index":{"value":null`) {
		t.Fatalf("expected a null simulated index in %s", rr.Body.String())
	}
}

func TestHandleSimulateErrors(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := serve(t, handler, http.MethodPost, "/api/simulate", []byte(`{"municipality": "Vitória"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without scenarios, got %d", rr.Code)
	}

	rr = serve(t, handler, http.MethodPost, "/api/simulate", []byte(`{not json`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid JSON, got %d", rr.Code)
	}

	rr = serve(t, handler, http.MethodPost, "/api/simulate",
		[]byte(`{"municipality": "Vitória", "year": 2023, "scenarios": [{"name": "x"}]}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for insufficient data, got %d", rr.Code)
	}

	rr = serve(t, handler, http.MethodGet, "/api/simulate", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleSimulateTooLarge(t *testing.T) {
	cfg := &Config{}
	cfg.SetUploadSizeBytes(64)
	handler := newTestHandler(t, cfg)

	body := []byte(`{"municipality": "Vitória", "scenarios": [{"name": "` + strings.Repeat("x", 128) + `"}]}`)
	rr := serve(t, handler, http.MethodPost, "/api/simulate", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestHandleCharts(t *testing.T) {
	handler := newTestHandler(t, nil)

	for _, target := range []string{
		"/api/chart/trend.png?municipality=Vit%C3%B3ria",
		"/api/chart/revenue.png?year=2024&municipality=Serra",
	} {
		rr := serve(t, handler, http.MethodGet, target, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d: %s", target, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("Content-Type") != contentTypePNG {
			t.Fatalf("%s: unexpected content type %s", target, rr.Header().Get("Content-Type"))
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("%s: body is not a PNG", target)
		}
	}

	rr := serve(t, handler, http.MethodGet, "/api/chart/revenue.png?year=2023", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for a year without enough data, got %d", rr.Code)
	}
}

func TestHandleRankingExport(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := serve(t, handler, http.MethodGet, "/api/export/ranking.csv?year=2024&metric=iqe", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != contentTypeCSV {
		t.Fatalf("unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "ranking-IQE-2024.csv") {
		t.Fatalf("unexpected disposition %s", rr.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rr.Body.String(), "1;Vila Velha;2024;") {
		t.Fatalf("unexpected CSV body: %s", rr.Body.String())
	}

	rr = serve(t, handler, http.MethodGet, "/api/export/ranking.xlsx", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != contentTypeXLSX {
		t.Fatalf("unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatal("expected a zip container")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/simulate", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS headers, got %v", rr.Header())
	}
}
