package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/cache"
	"github.com/finance-tips/finance-tips-go/internal/infra/memory"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/service"

	"go.uber.org/zap"
)

func newProfileService(store *memory.Store) *service.ProfileService {
	return service.NewProfileService(store, cache.New[*domain.Profile](5*time.Minute), observability.NewMetrics(), zap.NewNop())
}

// registerCompany creates a company account through the auth service
// and returns its context.
func registerCompany(t *testing.T, store *memory.Store, email string) *domain.AccountContext {
	t.Helper()
	svc := newAuthService(store)
	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:     email,
		Password:  "Sup3rSecret",
		Role:      domain.RoleCompany,
		LegalName: "ACME SARL",
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	return &domain.AccountContext{AccountID: resp.Account.ID, Role: domain.RoleCompany}
}

func registerEntity(t *testing.T, store *memory.Store, email string) *domain.AccountContext {
	t.Helper()
	svc := newAuthService(store)
	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:    email,
		Password: "Sup3rSecret",
		Role:     domain.RoleEntity,
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	return &domain.AccountContext{AccountID: resp.Account.ID, Role: domain.RoleEntity}
}

func TestUpdateProfile_CompanyBranding(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "brand@acme.example")

	updated, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		PrimaryColor:   "#2D6A9F",
		SecondaryColor: "#85B6D1",
		Slogan:         "Halal finance for everyone",
		StampText:      "ACME SARL - Paris",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Company.PrimaryColor != "#2D6A9F" {
		t.Errorf("expected primary color to be set, got %q", updated.Company.PrimaryColor)
	}
	if updated.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", updated.Version)
	}
}

func TestUpdateProfile_RejectsBadHexColor(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "color@acme.example")

	_, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		PrimaryColor: "blue",
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateProfile_EntityCannotSetBranding(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerEntity(t, store, "person@mail.example")

	_, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		StampText: "not yours",
	})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateProfile_EntityCanSetDisplayName(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerEntity(t, store, "rename@mail.example")

	updated, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		DisplayName: "Aïcha B.",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Entity.DisplayName != "Aïcha B." {
		t.Errorf("expected display name update, got %q", updated.Entity.DisplayName)
	}
}

func TestUpdateProfile_RoleMismatchForbidden(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "mismatch@acme.example")

	// Token claims entity while the stored profile is a company one.
	tampered := &domain.AccountContext{AccountID: actx.AccountID, Role: domain.RoleEntity}
	_, err := svc.UpdateProfile(context.Background(), tampered, &domain.UpdateProfileRequest{
		DisplayName: "Oops",
	})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

// Two writers starting from the same version: the second write must be
// rejected, not silently dropped.
func TestUpdateProfile_StaleVersionConflict(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "race@acme.example")

	if _, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		Version: 1,
		Slogan:  "first writer",
	}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	_, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{
		Version: 1,
		Slogan:  "second writer",
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	profile, err := store.GetProfile(context.Background(), actx.AccountID)
	if err != nil {
		t.Fatalf("profile fetch failed: %v", err)
	}
	if profile.Company.Slogan != "first writer" {
		t.Errorf("expected first write to survive, got %q", profile.Company.Slogan)
	}
}

func TestUpdateProfile_EmptyRequest(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "empty@acme.example")

	_, err := svc.UpdateProfile(context.Background(), actx, &domain.UpdateProfileRequest{})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetProfile_CachesResult(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "cache@acme.example")

	first, err := svc.GetProfile(context.Background(), actx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.GetProfile(context.Background(), actx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.AccountID != second.AccountID {
		t.Error("cached profile differs")
	}
}

func TestGetAccountStats(t *testing.T) {
	store := memory.NewStore()
	svc := newProfileService(store)
	actx := registerCompany(t, store, "stats@acme.example")

	receiptSvc := service.NewReceiptService(store, observability.NewMetrics(), zap.NewNop())
	if _, err := receiptSvc.IssueReceipt(context.Background(), actx, &domain.IssueReceiptRequest{
		Customer: domain.ReceiptCustomer{Name: "Client"},
		Items:    []domain.LineItem{{Description: "service", Quantity: 1, UnitPrice: 50}},
	}); err != nil {
		t.Fatalf("receipt issue failed: %v", err)
	}

	stats, err := svc.GetAccountStats(context.Background(), actx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.TotalReceipts != 1 {
		t.Errorf("expected 1 receipt, got %d", stats.TotalReceipts)
	}
	if stats.TotalCalculations != 0 {
		t.Errorf("expected 0 calculations, got %d", stats.TotalCalculations)
	}
}
