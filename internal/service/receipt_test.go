package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/cache"
	"github.com/finance-tips/finance-tips-go/internal/infra/memory"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/service"

	"go.uber.org/zap"
)

func newReceiptService(store *memory.Store) *service.ReceiptService {
	return service.NewReceiptService(store, observability.NewMetrics(), zap.NewNop())
}

func validReceiptRequest() *domain.IssueReceiptRequest {
	return &domain.IssueReceiptRequest{
		Customer: domain.ReceiptCustomer{Name: "Client SARL", Email: "client@mail.example"},
		Items: []domain.LineItem{
			{Description: "consulting", Quantity: 2, UnitPrice: 150},
			{Description: "travel", Quantity: 1, UnitPrice: 80.5},
		},
		Currency: "EUR",
	}
}

func TestIssueReceipt_ComputesTotalServerSide(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	actx := registerCompany(t, store, "issuer@acme.example")

	receipt, err := svc.IssueReceipt(context.Background(), actx, validReceiptRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.Subtotal != 380.5 {
		t.Errorf("expected subtotal 380.50, got %f", receipt.Subtotal)
	}
	if receipt.Total != 380.5 {
		t.Errorf("expected total 380.50, got %f", receipt.Total)
	}
	if !strings.HasPrefix(receipt.Number, "REC-") {
		t.Errorf("expected REC- numbering, got %q", receipt.Number)
	}
	if receipt.Branding.IssuerName != "ACME SARL" {
		t.Errorf("expected issuer branding from profile, got %q", receipt.Branding.IssuerName)
	}
}

// Branding is frozen at issue time: later profile edits must not
// change an already issued receipt.
func TestIssueReceipt_BrandingSnapshotIsImmutable(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	actx := registerCompany(t, store, "snapshot@acme.example")

	profileSvc := service.NewProfileService(store, cache.New[*domain.Profile](5*time.Minute), observability.NewMetrics(), zap.NewNop())
	if _, err := profileSvc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		PrimaryColor: "#111111",
	}); err != nil {
		t.Fatalf("profile update failed: %v", err)
	}

	receipt, err := svc.IssueReceipt(context.Background(), actx, validReceiptRequest())
	if err != nil {
		t.Fatalf("receipt issue failed: %v", err)
	}
	if receipt.Branding.PrimaryColor != "#111111" {
		t.Fatalf("expected branding color #111111, got %q", receipt.Branding.PrimaryColor)
	}

	if _, err := profileSvc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		PrimaryColor: "#FF0000",
	}); err != nil {
		t.Fatalf("second profile update failed: %v", err)
	}

	stored, err := svc.GetReceipt(context.Background(), actx, receipt.ID)
	if err != nil {
		t.Fatalf("receipt fetch failed: %v", err)
	}
	if stored.Branding.PrimaryColor != "#111111" {
		t.Errorf("branding changed after profile edit: %q", stored.Branding.PrimaryColor)
	}
}

func TestIssueReceipt_Validation(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	actx := registerCompany(t, store, "validate@acme.example")

	cases := []struct {
		name string
		req  *domain.IssueReceiptRequest
	}{
		{"no items", &domain.IssueReceiptRequest{
			Customer: domain.ReceiptCustomer{Name: "Client"},
		}},
		{"zero quantity", &domain.IssueReceiptRequest{
			Customer: domain.ReceiptCustomer{Name: "Client"},
			Items:    []domain.LineItem{{Description: "x", Quantity: 0, UnitPrice: 10}},
		}},
		{"negative price", &domain.IssueReceiptRequest{
			Customer: domain.ReceiptCustomer{Name: "Client"},
			Items:    []domain.LineItem{{Description: "x", Quantity: 1, UnitPrice: -1}},
		}},
		{"no customer name", &domain.IssueReceiptRequest{
			Items: []domain.LineItem{{Description: "x", Quantity: 1, UnitPrice: 10}},
		}},
		{"unsupported currency", &domain.IssueReceiptRequest{
			Customer: domain.ReceiptCustomer{Name: "Client"},
			Items:    []domain.LineItem{{Description: "x", Quantity: 1, UnitPrice: 10}},
			Currency: "BTC",
		}},
	}
	for _, tc := range cases {
		_, err := svc.IssueReceipt(context.Background(), actx, tc.req)
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestIssueCorrection_ReferencesOriginal(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	actx := registerCompany(t, store, "correct@acme.example")

	original, err := svc.IssueReceipt(context.Background(), actx, validReceiptRequest())
	if err != nil {
		t.Fatalf("original issue failed: %v", err)
	}

	fixed := validReceiptRequest()
	fixed.Items = []domain.LineItem{{Description: "consulting", Quantity: 1, UnitPrice: 150}}
	correction, err := svc.IssueCorrection(context.Background(), actx, original.ID, fixed)
	if err != nil {
		t.Fatalf("correction failed: %v", err)
	}

	if correction.CorrectionOf != original.ID {
		t.Errorf("expected correction to reference %s, got %s", original.ID, correction.CorrectionOf)
	}
	if correction.ID == original.ID {
		t.Error("correction must be a new receipt")
	}
	if correction.Total != 150 {
		t.Errorf("expected corrected total 150, got %f", correction.Total)
	}

	// The original row is untouched.
	stored, err := svc.GetReceipt(context.Background(), actx, original.ID)
	if err != nil {
		t.Fatalf("original fetch failed: %v", err)
	}
	if stored.Total != original.Total || stored.CorrectionOf != "" {
		t.Error("original receipt was mutated by the correction")
	}
}

func TestIssueCorrection_OwnershipEnforced(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	owner := registerCompany(t, store, "owner@acme.example")
	intruder := registerCompany(t, store, "intruder@acme.example")

	original, err := svc.IssueReceipt(context.Background(), owner, validReceiptRequest())
	if err != nil {
		t.Fatalf("original issue failed: %v", err)
	}

	_, err = svc.IssueCorrection(context.Background(), intruder, original.ID, validReceiptRequest())
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetReceipt_OwnershipEnforced(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	owner := registerCompany(t, store, "owner2@acme.example")
	intruder := registerCompany(t, store, "intruder2@acme.example")

	receipt, err := svc.IssueReceipt(context.Background(), owner, validReceiptRequest())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = svc.GetReceipt(context.Background(), intruder, receipt.ID)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListReceipts_ScopedAndPaginated(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	a := registerCompany(t, store, "list-a@acme.example")
	b := registerCompany(t, store, "list-b@acme.example")

	for i := 0; i < 3; i++ {
		if _, err := svc.IssueReceipt(context.Background(), a, validReceiptRequest()); err != nil {
			t.Fatalf("issue failed: %v", err)
		}
	}
	if _, err := svc.IssueReceipt(context.Background(), b, validReceiptRequest()); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	page, err := svc.ListReceipts(context.Background(), a, 1, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected page of 2, got %d", len(page))
	}
	for _, r := range page {
		if r.AccountID != a.AccountID {
			t.Errorf("receipt %s belongs to another account", r.ID)
		}
	}

	rest, err := svc.ListReceipts(context.Background(), a, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 receipt on page 2, got %d", len(rest))
	}
}

func TestIssueReceipt_EntityBranding(t *testing.T) {
	store := memory.NewStore()
	svc := newReceiptService(store)
	actx := registerEntity(t, store, "entity-issuer@mail.example")

	receipt, err := svc.IssueReceipt(context.Background(), actx, validReceiptRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.Branding.IssuerName == "" {
		t.Error("expected entity display name as issuer")
	}
	if receipt.Branding.StampText != "" {
		t.Error("entity receipts carry no stamp")
	}
}
