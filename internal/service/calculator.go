package service

import (
	"context"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var calcTracer = otel.Tracer("service/calculator")

// CalculatorService wraps the pure formula engine with metrics and
// optional history persistence. The formulas themselves live in the
// domain package and stay side-effect free; only authenticated runs
// (accountID != "") are recorded, and a failed save never fails the
// calculation.
type CalculatorService struct {
	store   port.CalculationStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCalculatorService creates the calculator service.
func NewCalculatorService(store port.CalculationStore, metrics *observability.Metrics, logger *zap.Logger) *CalculatorService {
	return &CalculatorService{store: store, metrics: metrics, logger: logger}
}

// SavingsPlan computes an interest-free savings plan.
func (s *CalculatorService) SavingsPlan(ctx context.Context, accountID string, goal, monthly float64) (*domain.SavingsPlanResult, error) {
	ctx, span := calcTracer.Start(ctx, "CalculatorService.SavingsPlan")
	defer span.End()

	result, err := domain.SavingsPlan(goal, monthly)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrCalculation(string(domain.CalcSavingsPlan))
	s.saveHistory(ctx, accountID, domain.CalcSavingsPlan,
		map[string]any{"goalAmount": goal, "monthlyContribution": monthly},
		map[string]any{"months": result.Months, "totalSaved": result.TotalSaved},
	)
	return result, nil
}

// LoanDuration computes the repayment duration of an interest-free loan.
func (s *CalculatorService) LoanDuration(ctx context.Context, accountID string, principal, payment float64) (*domain.LoanDurationResult, error) {
	ctx, span := calcTracer.Start(ctx, "CalculatorService.LoanDuration")
	defer span.End()

	result, err := domain.LoanDuration(principal, payment)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrCalculation(string(domain.CalcLoanDuration))
	s.saveHistory(ctx, accountID, domain.CalcLoanDuration,
		map[string]any{"principal": principal, "monthlyPayment": payment},
		map[string]any{"months": result.Months, "totalPaid": result.TotalPaid},
	)
	return result, nil
}

// BudgetSimulation computes potential savings (or deficit) for a month.
func (s *CalculatorService) BudgetSimulation(ctx context.Context, accountID string, income float64, expenses map[string]float64) (*domain.BudgetResult, error) {
	ctx, span := calcTracer.Start(ctx, "CalculatorService.BudgetSimulation")
	defer span.End()

	result, err := domain.BudgetSimulation(income, expenses)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrCalculation(string(domain.CalcBudgetSimulation))
	s.saveHistory(ctx, accountID, domain.CalcBudgetSimulation,
		map[string]any{"income": income, "expenses": expenses},
		map[string]any{"potentialSavings": result.PotentialSavings, "status": result.Status},
	)
	return result, nil
}

// Zakat computes the obligatory alms on net assets.
func (s *CalculatorService) Zakat(ctx context.Context, accountID string, assets, debts, nisab float64) (*domain.ZakatResult, error) {
	ctx, span := calcTracer.Start(ctx, "CalculatorService.Zakat")
	defer span.End()

	result, err := domain.Zakat(assets, debts, nisab)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrCalculation(string(domain.CalcZakat))
	s.saveHistory(ctx, accountID, domain.CalcZakat,
		map[string]any{"assets": assets, "debts": debts, "nisab": nisab},
		map[string]any{"eligible": result.Eligible, "zakatAmount": result.ZakatAmount},
	)
	return result, nil
}

// History returns the caller's saved calculator runs, newest first.
func (s *CalculatorService) History(ctx context.Context, actx *domain.AccountContext, calcType domain.CalculationType, limit int) ([]domain.Calculation, error) {
	ctx, span := calcTracer.Start(ctx, "CalculatorService.History")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", actx.AccountID))

	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.store.ListCalculations(ctx, actx.AccountID, calcType, limit)
}

func (s *CalculatorService) saveHistory(ctx context.Context, accountID string, calcType domain.CalculationType, input, result map[string]any) {
	if accountID == "" {
		return
	}
	calc := &domain.Calculation{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Type:      calcType,
		Input:     input,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveCalculation(ctx, calc); err != nil {
		s.metrics.IncrStoreError("calculations")
		s.logger.Warn("calculation history save failed",
			zap.String("account_id", accountID),
			zap.String("type", string(calcType)),
			zap.Error(err),
		)
	}
}
