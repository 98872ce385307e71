package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/handler"
	"github.com/finance-tips/finance-tips-go/internal/infra/cache"
	"github.com/finance-tips/finance-tips-go/internal/infra/memory"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/service"

	"go.uber.org/zap"
)

func newTestRouter() http.Handler {
	store := memory.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	authSvc := service.NewAuthService(store, "router-test-secret", time.Hour, 24*time.Hour, 8, metrics, logger)
	profileSvc := service.NewProfileService(store, cache.New[*domain.Profile](time.Minute), metrics, logger)
	receiptSvc := service.NewReceiptService(store, metrics, logger)
	calcSvc := service.NewCalculatorService(store, metrics, logger)
	contentSvc := service.NewContentService(store, cache.New[[]domain.FinancialTip](time.Minute), metrics, logger)

	return handler.NewRouter(handler.Services{
		Auth:       authSvc,
		Profile:    profileSvc,
		Receipt:    receiptSvc,
		Calculator: calcSvc,
		Content:    contentSvc,
	}, store, metrics, []string{"*"}, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":     "api@acme.example",
		"password":  "Sup3rSecret",
		"role":      "company",
		"legalName": "ACME SARL",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token in response")
	}
}

func TestRegisterEndpoint_WeakPassword(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":     "weak@acme.example",
		"password":  "short",
		"role":      "company",
		"legalName": "ACME SARL",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestProfileEndpoint_RequiresToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/v1/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/profile", "forged.token.value", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for forged token, got %d", rec.Code)
	}
}

func TestCalculatorEndpoint_AnonymousAllowed(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/v1/calculators/savings-plan", "", map[string]any{
		"goalAmount":          1200,
		"monthlyContribution": 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.SavingsPlanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Months != 12 {
		t.Errorf("expected 12 months, got %d", result.Months)
	}
}

func TestCalculatorEndpoint_InvalidInput(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/v1/calculators/loan-duration", "", map[string]any{
		"principal":      100,
		"monthlyPayment": 500,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCalculationHistory_RequiresToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/v1/calculations", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestUsageMetricsEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/v1/metrics/usage", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snapshot domain.UsageMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
}

func TestNewsletterSubscribe(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/v1/newsletter", "", map[string]any{
		"email": "reader@mail.example",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/v1/newsletter/reader@mail.example", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAccountDeactivationEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":     "closing@acme.example",
		"password":  "Sup3rSecret",
		"role":      "company",
		"legalName": "ACME SARL",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var reg domain.RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if rec := doJSON(t, router, http.MethodDelete, "/v1/account", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	if rec := doJSON(t, router, http.MethodDelete, "/v1/account", reg.AccessToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "closing@acme.example",
		"password": "Sup3rSecret",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after deactivation, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCalculatorInfoEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/v1/calculators/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var info struct {
		Calculators map[string]json.RawMessage `json:"calculators"`
		Currencies  map[string]json.RawMessage `json:"currencies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, name := range []string{"savings_plan", "loan_duration", "budget_simulation", "zakat"} {
		if _, ok := info.Calculators[name]; !ok {
			t.Errorf("expected calculator %q in metadata", name)
		}
	}
	if _, ok := info.Currencies["EUR"]; !ok {
		t.Error("expected EUR in supported currencies")
	}
}
