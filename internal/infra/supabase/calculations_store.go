package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Calculations — table "calculations"
// ============================================================

type calculationRow struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Type      string         `json:"type"`
	Input     map[string]any `json:"input"`
	Result    map[string]any `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

func (r *calculationRow) toDomain() domain.Calculation {
	return domain.Calculation{
		ID:        r.ID,
		AccountID: r.AccountID,
		Type:      domain.CalculationType(r.Type),
		Input:     r.Input,
		Result:    r.Result,
		CreatedAt: r.CreatedAt,
	}
}

// SaveCalculation records one authenticated calculator run.
func (c *Client) SaveCalculation(ctx context.Context, calc *domain.Calculation) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveCalculation")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", calc.AccountID),
		attribute.String("calculation.type", string(calc.Type)),
	)

	row := calculationRow{
		ID:        calc.ID,
		AccountID: calc.AccountID,
		Type:      string(calc.Type),
		Input:     calc.Input,
		Result:    calc.Result,
		CreatedAt: calc.CreatedAt,
	}

	return c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "calculations", row)
		return err
	})
}

// ListCalculations returns the most recent runs of an account,
// optionally filtered by type.
func (c *Client) ListCalculations(ctx context.Context, accountID string, calcType domain.CalculationType, limit int) ([]domain.Calculation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCalculations")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var calcs []domain.Calculation
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("calculations?account_id=eq.%s&order=created_at.desc&limit=%d",
			url.QueryEscape(accountID), limit)
		if calcType != "" {
			path += fmt.Sprintf("&type=eq.%s", url.QueryEscape(string(calcType)))
		}
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			calcs = []domain.Calculation{}
			return nil
		}

		var rows []calculationRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode calculations: %w", err)
		}
		calcs = make([]domain.Calculation, 0, len(rows))
		for i := range rows {
			calcs = append(calcs, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return calcs, nil
}

// CountCalculations returns how many runs an account has saved.
func (c *Client) CountCalculations(ctx context.Context, accountID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountCalculations")
	defer span.End()

	var count int
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("calculations?account_id=eq.%s&select=count", url.QueryEscape(accountID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			count = 0
			return nil
		}
		n, err := decodeCount(body)
		if err != nil {
			return fmt.Errorf("decode calculation count: %w", err)
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
