// Package port defines the interfaces (ports) for external
// dependencies. Following hexagonal architecture, these ports decouple
// the domain/service layer from concrete implementations.
package port

import (
	"context"

	"github.com/finance-tips/finance-tips-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// AccountStore persists accounts and credentials. The implementation
// guarantees email uniqueness (CreateAccount returns
// domain.ErrDuplicateEmail on a duplicate).
type AccountStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	// GetAccountByEmail returns (nil, nil) when the email is unknown;
	// absence is not an error for auth lookups.
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, accountID string, updates map[string]any) error
}

// ProfileStore persists role-tagged profiles. UpdateProfile applies
// the updates only when the stored version matches expectedVersion and
// returns domain.ErrConflict otherwise, so concurrent edits to the
// same profile never silently lose a write.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	GetProfile(ctx context.Context, accountID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, accountID string, expectedVersion int, updates map[string]any) (*domain.Profile, error)
}

// ReceiptStore is append-only: receipts can be created, read and
// listed but never updated or deleted.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, receipt *domain.Receipt) (*domain.Receipt, error)
	GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error)
	ListReceipts(ctx context.Context, accountID string, page, pageSize int) ([]domain.Receipt, error)
	CountReceipts(ctx context.Context, accountID string) (int, error)
}

// CalculationStore persists calculator history for authenticated runs.
type CalculationStore interface {
	SaveCalculation(ctx context.Context, calc *domain.Calculation) error
	ListCalculations(ctx context.Context, accountID string, calcType domain.CalculationType, limit int) ([]domain.Calculation, error)
	CountCalculations(ctx context.Context, accountID string) (int, error)
}

// ContentStore serves the tips blog and newsletter signups.
type ContentStore interface {
	ListTips(ctx context.Context, category string, limit int) ([]domain.FinancialTip, error)
	GetTipBySlug(ctx context.Context, slug string) (*domain.FinancialTip, error)
	IncrementTipViews(ctx context.Context, tipID string) error
	UpsertNewsletterSignup(ctx context.Context, signup *domain.NewsletterSignup) error
	GetNewsletterSignup(ctx context.Context, email string) (*domain.NewsletterSignup, error)
}

// Store bundles every persistence port; the Supabase and in-memory
// adapters both satisfy it.
type Store interface {
	AccountStore
	ProfileStore
	ReceiptStore
	CalculationStore
	ContentStore
}
