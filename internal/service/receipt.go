package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var receiptTracer = otel.Tracer("service/receipt")

// ReceiptService issues and reads receipts. Receipts are append-only:
// nothing here updates or deletes a stored receipt.
type ReceiptService struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReceiptService creates the receipt service.
func NewReceiptService(store port.Store, metrics *observability.Metrics, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{store: store, metrics: metrics, logger: logger}
}

// IssueReceipt creates a receipt for the authenticated account.
// Totals are computed here from the line items; any total a client
// might send has no field to land in. The issuer's current branding is
// snapshotted into the receipt and frozen there.
func (s *ReceiptService) IssueReceipt(ctx context.Context, actx *domain.AccountContext, req *domain.IssueReceiptRequest) (*domain.Receipt, error) {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.IssueReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", actx.AccountID))
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("receipt_issue", time.Since(start)) }()

	return s.issue(ctx, actx, req, "")
}

// IssueCorrection creates a new receipt correcting an existing one.
// The original row is never touched; the correction references it.
func (s *ReceiptService) IssueCorrection(ctx context.Context, actx *domain.AccountContext, originalID string, req *domain.IssueReceiptRequest) (*domain.Receipt, error) {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.IssueCorrection")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", actx.AccountID),
		attribute.String("receipt.original_id", originalID),
	)

	original, err := s.store.GetReceipt(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original.AccountID != actx.AccountID {
		return nil, &domain.ErrForbidden{Action: "correct another account's receipt"}
	}

	return s.issue(ctx, actx, req, originalID)
}

// GetReceipt returns a single receipt owned by the caller.
func (s *ReceiptService) GetReceipt(ctx context.Context, actx *domain.AccountContext, receiptID string) (*domain.Receipt, error) {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.GetReceipt")
	defer span.End()

	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.AccountID != actx.AccountID {
		return nil, &domain.ErrForbidden{Action: "read another account's receipt"}
	}
	return receipt, nil
}

// ListReceipts returns the caller's receipts, newest first.
func (s *ReceiptService) ListReceipts(ctx context.Context, actx *domain.AccountContext, page, pageSize int) ([]domain.Receipt, error) {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.ListReceipts")
	defer span.End()

	return s.store.ListReceipts(ctx, actx.AccountID, page, pageSize)
}

func (s *ReceiptService) issue(ctx context.Context, actx *domain.AccountContext, req *domain.IssueReceiptRequest, correctionOf string) (*domain.Receipt, error) {
	if err := validateLineItems(req.Items); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		return nil, &domain.ErrValidation{Field: "customer.name", Message: "is required"}
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	if !domain.SupportedCurrencies[currency] {
		return nil, &domain.ErrValidation{Field: "currency", Message: "unsupported currency"}
	}

	profile, err := s.store.GetProfile(ctx, actx.AccountID)
	if err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}

	subtotal := 0.0
	for _, item := range req.Items {
		subtotal += item.Total()
	}
	subtotal = math.Round(subtotal*100) / 100

	now := time.Now().UTC()
	receipt := &domain.Receipt{
		ID:        uuid.New().String(),
		Number:    generateReceiptNumber(now),
		AccountID: actx.AccountID,
		Customer:  req.Customer,
		Items:     req.Items,
		Subtotal:  subtotal,
		// No tax or discount lines yet, so the total is the subtotal.
		// Both are stored so corrections keep their meaning if that
		// ever changes.
		Total:        subtotal,
		Currency:     currency,
		Notes:        req.Notes,
		Branding:     brandingFromProfile(profile),
		CorrectionOf: correctionOf,
		IssuedAt:     now,
	}

	created, err := s.store.CreateReceipt(ctx, receipt)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrReceiptIssued()
	s.logger.Info("receipt issued",
		zap.String("account_id", actx.AccountID),
		zap.String("receipt_id", created.ID),
		zap.String("number", created.Number),
		zap.Bool("correction", correctionOf != ""),
	)
	return created, nil
}

func validateLineItems(items []domain.LineItem) error {
	if len(items) == 0 {
		return &domain.ErrValidation{Field: "items", Message: "at least one line item is required"}
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return &domain.ErrValidation{Field: fmt.Sprintf("items[%d].description", i), Message: "is required"}
		}
		if item.Quantity <= 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than zero"}
		}
		if item.UnitPrice < 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("items[%d].unit_price", i), Message: "must not be negative"}
		}
	}
	return nil
}

// brandingFromProfile freezes the issuer's current branding. Entity
// accounts only carry a display name and optional logo.
func brandingFromProfile(p *domain.Profile) domain.BrandingSnapshot {
	switch {
	case p.Company != nil:
		name := p.Company.DisplayName
		if name == "" {
			name = p.Company.LegalName
		}
		return domain.BrandingSnapshot{
			IssuerName:     name,
			LogoURL:        p.Company.LogoURL,
			PrimaryColor:   p.Company.PrimaryColor,
			SecondaryColor: p.Company.SecondaryColor,
			StampText:      p.Company.StampText,
			StampImageURL:  p.Company.StampImageURL,
		}
	case p.Entity != nil:
		return domain.BrandingSnapshot{
			IssuerName: p.Entity.DisplayName,
			LogoURL:    p.Entity.LogoURL,
		}
	}
	return domain.BrandingSnapshot{}
}

func generateReceiptNumber(now time.Time) string {
	// REC-YYYYMM-<8 hex chars>; uniqueness comes from the uuid part.
	return fmt.Sprintf("REC-%s-%s", now.Format("200601"), strings.ToUpper(uuid.New().String()[:8]))
}
