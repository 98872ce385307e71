package domain

import (
	"math"
	"time"
)

// ============================================================
// Formula engine — interest-free financial projections
// ============================================================
//
// All functions here are pure and deterministic: identical inputs
// always produce identical outputs, and nothing is persisted or
// mutated. No formula carries an interest term.

// maxLoanDurationMonths caps repayment plans at 30 years.
const maxLoanDurationMonths = 360

// CalculationType labels a persisted calculator run.
type CalculationType string

const (
	CalcSavingsPlan      CalculationType = "savings_plan"
	CalcLoanDuration     CalculationType = "loan_duration"
	CalcBudgetSimulation CalculationType = "budget_simulation"
	CalcZakat            CalculationType = "zakat"
)

// Calculation is a persisted calculator run for an authenticated
// account. Anonymous runs are never stored.
type Calculation struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Type      CalculationType `json:"type"`
	Input     map[string]any  `json:"input"`
	Result    map[string]any  `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// SavingsPlanResult is the outcome of SavingsPlan.
type SavingsPlanResult struct {
	GoalAmount          float64 `json:"goalAmount"`
	MonthlyContribution float64 `json:"monthlyContribution"`
	Months              int     `json:"months"`
	Years               float64 `json:"years"`
	TotalSaved          float64 `json:"totalSaved"`
}

// SavingsPlan returns how many monthly contributions are needed to
// reach goal. The plan always covers the goal: months × contribution
// ≥ goal and (months−1) × contribution < goal.
func SavingsPlan(goal, monthly float64) (*SavingsPlanResult, error) {
	if goal <= 0 {
		return nil, &ErrValidation{Field: "goalAmount", Message: "must be greater than zero"}
	}
	if monthly <= 0 {
		return nil, &ErrValidation{Field: "monthlyContribution", Message: "must be greater than zero"}
	}

	months := int(math.Ceil(goal / monthly))
	return &SavingsPlanResult{
		GoalAmount:          goal,
		MonthlyContribution: monthly,
		Months:              months,
		Years:               math.Round(float64(months)/12*10) / 10,
		TotalSaved:          float64(months) * monthly,
	}, nil
}

// LoanDurationResult is the outcome of LoanDuration.
type LoanDurationResult struct {
	Principal      float64 `json:"principal"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	Months         int     `json:"months"`
	Years          float64 `json:"years"`
	TotalPaid      float64 `json:"totalPaid"`
	FinalPayment   float64 `json:"finalPayment"`
}

// LoanDuration returns the repayment duration of an interest-free
// loan. The last installment covers only the remaining balance, so
// TotalPaid always equals the principal.
func LoanDuration(principal, payment float64) (*LoanDurationResult, error) {
	if principal <= 0 {
		return nil, &ErrValidation{Field: "principal", Message: "must be greater than zero"}
	}
	if payment <= 0 {
		return nil, &ErrValidation{Field: "monthlyPayment", Message: "must be greater than zero"}
	}
	if payment > principal {
		return nil, &ErrValidation{Field: "monthlyPayment", Message: "must not exceed the principal"}
	}

	months := int(math.Ceil(principal / payment))
	if months > maxLoanDurationMonths {
		return nil, &ErrValidation{Field: "monthlyPayment", Message: "repayment would exceed 360 months"}
	}

	final := principal - payment*float64(months-1)
	return &LoanDurationResult{
		Principal:      principal,
		MonthlyPayment: payment,
		Months:         months,
		Years:          math.Round(float64(months)/12*10) / 10,
		TotalPaid:      principal,
		FinalPayment:   final,
	}, nil
}

// ExpenseShare is a single expense category inside a budget result.
type ExpenseShare struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// BudgetResult is the outcome of BudgetSimulation. PotentialSavings
// is negative when the budget runs a deficit; callers must surface
// that, never clamp it.
type BudgetResult struct {
	Income           float64                 `json:"income"`
	TotalExpenses    float64                 `json:"totalExpenses"`
	PotentialSavings float64                 `json:"potentialSavings"`
	SavingsRate      float64                 `json:"savingsRate"`
	Status           string                  `json:"status"`
	Breakdown        map[string]ExpenseShare `json:"breakdown,omitempty"`
}

// BudgetSimulation computes income − Σexpenses with a per-category
// breakdown. Income and every expense must be non-negative.
func BudgetSimulation(income float64, expenses map[string]float64) (*BudgetResult, error) {
	if income < 0 {
		return nil, &ErrValidation{Field: "income", Message: "must not be negative"}
	}

	total := 0.0
	breakdown := make(map[string]ExpenseShare, len(expenses))
	for category, amount := range expenses {
		if amount < 0 {
			return nil, &ErrValidation{Field: "expenses." + category, Message: "must not be negative"}
		}
		total += amount
	}
	for category, amount := range expenses {
		share := ExpenseShare{Amount: amount}
		if income > 0 {
			share.Percentage = math.Round(amount/income*1000) / 10
		}
		breakdown[category] = share
	}

	savings := income - total
	rate := 0.0
	if income > 0 {
		rate = math.Round(savings/income*1000) / 10
	}

	status := "balanced"
	switch {
	case savings > 0:
		status = "surplus"
	case savings < 0:
		status = "deficit"
	}

	return &BudgetResult{
		Income:           income,
		TotalExpenses:    total,
		PotentialSavings: savings,
		SavingsRate:      rate,
		Status:           status,
		Breakdown:        breakdown,
	}, nil
}

// ZakatResult is the outcome of Zakat.
type ZakatResult struct {
	Eligible    bool    `json:"eligible"`
	NetAssets   float64 `json:"netAssets"`
	NisabValue  float64 `json:"nisabValue"`
	ZakatAmount float64 `json:"zakatAmount,omitempty"`
	Shortfall   float64 `json:"shortfall,omitempty"`
}

// Zakat computes the obligatory alms: 2.5% of net assets when they
// reach the nisab threshold. A nisab of 0 uses the default.
func Zakat(assets, debts, nisab float64) (*ZakatResult, error) {
	if assets < 0 {
		return nil, &ErrValidation{Field: "assets", Message: "must not be negative"}
	}
	if debts < 0 {
		return nil, &ErrValidation{Field: "debts", Message: "must not be negative"}
	}
	if nisab < 0 {
		return nil, &ErrValidation{Field: "nisab", Message: "must not be negative"}
	}
	if nisab == 0 {
		nisab = 3000 // approximate value of 85g of gold in EUR
	}

	net := assets - debts
	if net < nisab {
		return &ZakatResult{Eligible: false, NetAssets: net, NisabValue: nisab, Shortfall: nisab - net}, nil
	}
	return &ZakatResult{Eligible: true, NetAssets: net, NisabValue: nisab, ZakatAmount: net * 0.025}, nil
}
