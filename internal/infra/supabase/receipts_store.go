package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Receipts — table "receipts", append-only
// ============================================================
//
// The table has no UPDATE or DELETE path in this codebase; corrections
// are inserted as new rows referencing the original.

type receiptRow struct {
	ID           string                  `json:"id"`
	Number       string                  `json:"number"`
	AccountID    string                  `json:"account_id"`
	Customer     domain.ReceiptCustomer  `json:"customer"`
	Items        []domain.LineItem       `json:"items"`
	Subtotal     float64                 `json:"subtotal"`
	Total        float64                 `json:"total"`
	Currency     string                  `json:"currency"`
	Notes        string                  `json:"notes"`
	Branding     domain.BrandingSnapshot `json:"branding"`
	CorrectionOf string                  `json:"correction_of"`
	IssuedAt     time.Time               `json:"issued_at"`
}

func (r *receiptRow) toDomain() *domain.Receipt {
	return &domain.Receipt{
		ID:           r.ID,
		Number:       r.Number,
		AccountID:    r.AccountID,
		Customer:     r.Customer,
		Items:        r.Items,
		Subtotal:     r.Subtotal,
		Total:        r.Total,
		Currency:     r.Currency,
		Notes:        r.Notes,
		Branding:     r.Branding,
		CorrectionOf: r.CorrectionOf,
		IssuedAt:     r.IssuedAt,
	}
}

// CreateReceipt inserts an issued receipt.
func (c *Client) CreateReceipt(ctx context.Context, receipt *domain.Receipt) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateReceipt")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", receipt.AccountID),
		attribute.String("receipt.number", receipt.Number),
	)

	row := receiptRow{
		ID:           receipt.ID,
		Number:       receipt.Number,
		AccountID:    receipt.AccountID,
		Customer:     receipt.Customer,
		Items:        receipt.Items,
		Subtotal:     receipt.Subtotal,
		Total:        receipt.Total,
		Currency:     receipt.Currency,
		Notes:        receipt.Notes,
		Branding:     receipt.Branding,
		CorrectionOf: receipt.CorrectionOf,
		IssuedAt:     receipt.IssuedAt,
	}

	var created *domain.Receipt
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "receipts", row)
		if err != nil {
			return err
		}

		var rows []receiptRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode created receipt: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrExternalService{Service: "supabase", Err: errors.New("insert returned no rows")}
		}
		created = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetReceipt fetches one receipt by ID.
func (c *Client) GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("receipt.id", receiptID))

	var receipt *domain.Receipt
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("receipts?id=eq.%s&limit=1", url.QueryEscape(receiptID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "receipt", ID: receiptID})
		}

		var rows []receiptRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode receipt: %w", err)
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "receipt", ID: receiptID})
		}
		receipt = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns one page of an account's receipts, newest first.
func (c *Client) ListReceipts(ctx context.Context, accountID string, page, pageSize int) ([]domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListReceipts")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	offset := (page - 1) * pageSize

	var receipts []domain.Receipt
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("receipts?account_id=eq.%s&order=issued_at.desc&limit=%d&offset=%d",
			url.QueryEscape(accountID), pageSize, offset)
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			receipts = []domain.Receipt{}
			return nil
		}

		var rows []receiptRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode receipts: %w", err)
		}
		receipts = make([]domain.Receipt, 0, len(rows))
		for i := range rows {
			receipts = append(receipts, *rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// CountReceipts returns how many receipts an account has issued.
func (c *Client) CountReceipts(ctx context.Context, accountID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountReceipts")
	defer span.End()

	var count int
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("receipts?account_id=eq.%s&select=count", url.QueryEscape(accountID))
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
			return fmt.Errorf("decode receipt count: %w", err)
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
