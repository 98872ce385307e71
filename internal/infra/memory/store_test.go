package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/memory"
)

func testAccount(id, email string) *domain.Account {
	now := time.Now().UTC()
	return &domain.Account{
		ID:           id,
		Email:        email,
		Username:     "user-" + id,
		PasswordHash: "hash",
		Role:         domain.RoleCompany,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateAccount_EnforcesEmailUniqueness(t *testing.T) {
	store := memory.NewStore()

	if _, err := store.CreateAccount(context.Background(), testAccount("a1", "x@mail.example")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := store.CreateAccount(context.Background(), testAccount("a2", "X@mail.example"))
	var duplicate *domain.ErrDuplicateEmail
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestGetAccountByEmail_UnknownIsNilNil(t *testing.T) {
	store := memory.NewStore()

	account, err := store.GetAccountByEmail(context.Background(), "ghost@mail.example")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account, got %+v", account)
	}
}

func TestUpdateProfile_VersionCAS(t *testing.T) {
	store := memory.NewStore()

	profile := &domain.Profile{
		AccountID: "a1",
		Role:      domain.RoleCompany,
		Company:   &domain.CompanyProfile{LegalName: "ACME"},
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.CreateProfile(context.Background(), profile); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := store.UpdateProfile(context.Background(), "a1", 1, map[string]any{"slogan": "hello"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}
	if updated.Company.Slogan != "hello" {
		t.Errorf("expected slogan update, got %q", updated.Company.Slogan)
	}

	_, err = store.UpdateProfile(context.Background(), "a1", 1, map[string]any{"slogan": "stale"})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
}

// Mutating a receipt returned by the store must not affect the stored
// copy.
func TestReceipts_ReturnedCopiesAreIndependent(t *testing.T) {
	store := memory.NewStore()

	receipt := &domain.Receipt{
		ID:        "r1",
		Number:    "REC-202601-AAAAAAAA",
		AccountID: "a1",
		Items:     []domain.LineItem{{Description: "x", Quantity: 1, UnitPrice: 10}},
		Subtotal:  10,
		Total:     10,
		Currency:  "EUR",
		IssuedAt:  time.Now().UTC(),
	}
	if _, err := store.CreateReceipt(context.Background(), receipt); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.GetReceipt(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got.Total = 9999
	got.Items[0].UnitPrice = 9999

	again, err := store.GetReceipt(context.Background(), "r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again.Total != 10 || again.Items[0].UnitPrice != 10 {
		t.Error("stored receipt was mutated through a returned copy")
	}
}

func TestListReceipts_NewestFirst(t *testing.T) {
	store := memory.NewStore()

	base := time.Now().UTC()
	for i, id := range []string{"r1", "r2", "r3"} {
		_, err := store.CreateReceipt(context.Background(), &domain.Receipt{
			ID:        id,
			AccountID: "a1",
			Items:     []domain.LineItem{{Description: "x", Quantity: 1, UnitPrice: 1}},
			IssuedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	receipts, err := store.ListReceipts(context.Background(), "a1", 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(receipts) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(receipts))
	}
	if receipts[0].ID != "r3" || receipts[2].ID != "r1" {
		t.Errorf("expected newest first, got %s..%s", receipts[0].ID, receipts[2].ID)
	}
}

func TestListCalculations_LimitAndFilter(t *testing.T) {
	store := memory.NewStore()

	for i := 0; i < 5; i++ {
		calcType := domain.CalcSavingsPlan
		if i%2 == 1 {
			calcType = domain.CalcZakat
		}
		err := store.SaveCalculation(context.Background(), &domain.Calculation{
			ID:        "c" + string(rune('0'+i)),
			AccountID: "a1",
			Type:      calcType,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	all, err := store.ListCalculations(context.Background(), "a1", "", 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected limit 3, got %d", len(all))
	}

	zakat, err := store.ListCalculations(context.Background(), "a1", domain.CalcZakat, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(zakat) != 2 {
		t.Errorf("expected 2 zakat runs, got %d", len(zakat))
	}
	for _, c := range zakat {
		if c.Type != domain.CalcZakat {
			t.Errorf("unexpected type %s", c.Type)
		}
	}
}
