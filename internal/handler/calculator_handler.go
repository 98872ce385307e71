package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Calculator handlers
// ============================================================
//
// Calculators are open to anonymous callers. When a valid token is
// attached the run is also saved to the caller's history.

func callerAccountID(r *http.Request) string {
	if ac, ok := AccountContextFromContext(r.Context()); ok {
		return ac.AccountID
	}
	return ""
}

type savingsPlanRequest struct {
	GoalAmount          float64 `json:"goalAmount"`
	MonthlyContribution float64 `json:"monthlyContribution"`
}

func savingsPlanHandler(calcService *service.CalculatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req savingsPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := calcService.SavingsPlan(r.Context(), callerAccountID(r), req.GoalAmount, req.MonthlyContribution)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type loanDurationRequest struct {
	Principal      float64 `json:"principal"`
	MonthlyPayment float64 `json:"monthlyPayment"`
}

func loanDurationHandler(calcService *service.CalculatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loanDurationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := calcService.LoanDuration(r.Context(), callerAccountID(r), req.Principal, req.MonthlyPayment)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type budgetSimulationRequest struct {
	MonthlyIncome float64            `json:"monthlyIncome"`
	Expenses      map[string]float64 `json:"expenses"`
}

func budgetSimulationHandler(calcService *service.CalculatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req budgetSimulationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := calcService.BudgetSimulation(r.Context(), callerAccountID(r), req.MonthlyIncome, req.Expenses)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type zakatRequest struct {
	TotalAssets float64 `json:"totalAssets"`
	TotalDebts  float64 `json:"totalDebts"`
	Nisab       float64 `json:"nisab"`
}

func zakatHandler(calcService *service.CalculatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req zakatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := calcService.Zakat(r.Context(), callerAccountID(r), req.TotalAssets, req.TotalDebts, req.Nisab)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// calculatorInfoHandler serves static metadata about the calculators:
// display names, input limits and the supported currencies. Frontends
// render this next to the forms instead of hard-coding the limits.
func calculatorInfoHandler() http.HandlerFunc {
	info := map[string]any{
		"calculators": map[string]any{
			"savings_plan": map[string]any{
				"name":        "Halal savings plan",
				"description": "How much to set aside each month to reach a goal",
				"limits": map[string]any{
					"min_monthly_saving":  10,
					"max_duration_months": 360,
				},
			},
			"loan_duration": map[string]any{
				"name":        "Repayment duration",
				"description": "How long an interest-free loan takes to repay",
				"limits": map[string]any{
					"min_loan_amount":     100,
					"max_loan_amount":     10000000,
					"max_duration_months": 360,
				},
			},
			"budget_simulation": map[string]any{
				"name":        "Budget simulation",
				"description": "Income versus expenses with a per-category breakdown",
				"expense_categories": []string{
					"housing", "food", "transport", "health",
					"education", "leisure", "other",
				},
			},
			"zakat": map[string]any{
				"name":        "Zakat",
				"description": "Annual zakat, 2.5% of net assets above the nisab",
			},
		},
		"currencies": map[string]any{
			"EUR": map[string]string{"symbol": "€", "name": "Euro"},
			"USD": map[string]string{"symbol": "$", "name": "US Dollar"},
			"MAD": map[string]string{"symbol": "DH", "name": "Moroccan Dirham"},
			"TND": map[string]string{"symbol": "DT", "name": "Tunisian Dinar"},
			"DZD": map[string]string{"symbol": "DA", "name": "Algerian Dinar"},
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, info)
	}
}

func calculationHistoryHandler(calcService *service.CalculatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := AccountContextFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing account context")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		calcType := domain.CalculationType(r.URL.Query().Get("type"))

		history, err := calcService.History(r.Context(), ac, calcType, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"calculations": history})
	}
}
