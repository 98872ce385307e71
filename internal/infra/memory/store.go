// Package memory implements port.Store with in-process maps. It backs
// local development when Supabase is not configured, and the service
// and integration tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
)

// Store is a thread-safe in-memory port.Store.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*domain.Account // by ID
	emails       map[string]string          // email -> account ID
	profiles     map[string]*domain.Profile // by account ID
	receipts     map[string]*domain.Receipt // by ID
	receiptOrder []string                   // insertion order, newest last
	calculations map[string][]domain.Calculation
	tips         map[string]*domain.FinancialTip // by ID
	signups      map[string]*domain.NewsletterSignup
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		emails:       make(map[string]string),
		profiles:     make(map[string]*domain.Profile),
		receipts:     make(map[string]*domain.Receipt),
		calculations: make(map[string][]domain.Calculation),
		tips:         make(map[string]*domain.FinancialTip),
		signups:      make(map[string]*domain.NewsletterSignup),
	}
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, exists := s.emails[email]; exists {
		return nil, &domain.ErrDuplicateEmail{Email: account.Email}
	}

	cp := *account
	s.accounts[account.ID] = &cp
	s.emails[email] = account.ID
	out := cp
	return &out, nil
}

func (s *Store) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	cp := *account
	return &cp, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *Store) UpdateAccount(ctx context.Context, accountID string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	for column, value := range updates {
		switch column {
		case "password_hash":
			if v, ok := value.(string); ok {
				account.PasswordHash = v
			}
		case "last_login_at":
			switch v := value.(type) {
			case time.Time:
				account.LastLoginAt = &v
			case string:
				if t, err := time.Parse(time.RFC3339, v); err == nil {
					account.LastLoginAt = &t
				}
			}
		case "active":
			if v, ok := value.(bool); ok {
				account.Active = v
			}
		case "verified":
			if v, ok := value.(bool); ok {
				account.Verified = v
			}
		case "updated_at":
			switch v := value.(type) {
			case time.Time:
				account.UpdatedAt = v
			case string:
				if t, err := time.Parse(time.RFC3339, v); err == nil {
					account.UpdatedAt = t
				}
			}
		}
	}
	return nil
}

// ============================================================
// Profiles
// ============================================================

func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.AccountID] = copyProfile(profile)
	return nil
}

func (s *Store) GetProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: accountID}
	}
	return copyProfile(profile), nil
}

func (s *Store) UpdateProfile(ctx context.Context, accountID string, expectedVersion int, updates map[string]any) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: accountID}
	}
	if profile.Version != expectedVersion {
		return nil, &domain.ErrConflict{Message: "profile was modified concurrently, re-read and retry"}
	}

	for column, value := range updates {
		str, _ := value.(string)
		switch column {
		case "legal_name":
			if profile.Company != nil {
				profile.Company.LegalName = str
			}
		case "display_name":
			if profile.Company != nil {
				profile.Company.DisplayName = str
			}
			if profile.Entity != nil {
				profile.Entity.DisplayName = str
			}
		case "logo_url":
			if profile.Company != nil {
				profile.Company.LogoURL = str
			}
			if profile.Entity != nil {
				profile.Entity.LogoURL = str
			}
		case "primary_color":
			if profile.Company != nil {
				profile.Company.PrimaryColor = str
			}
		case "secondary_color":
			if profile.Company != nil {
				profile.Company.SecondaryColor = str
			}
		case "slogan":
			if profile.Company != nil {
				profile.Company.Slogan = str
			}
		case "address":
			if profile.Company != nil {
				profile.Company.Address = str
			}
		case "tax_id":
			if profile.Company != nil {
				profile.Company.TaxID = str
			}
		case "stamp_text":
			if profile.Company != nil {
				profile.Company.StampText = str
			}
		case "stamp_image_url":
			if profile.Company != nil {
				profile.Company.StampImageURL = str
			}
		case "updated_at":
			if t, err := time.Parse(time.RFC3339, str); err == nil {
				profile.UpdatedAt = t
			}
		}
	}

	profile.Version = expectedVersion + 1
	return copyProfile(profile), nil
}

func copyProfile(p *domain.Profile) *domain.Profile {
	cp := *p
	if p.Company != nil {
		company := *p.Company
		cp.Company = &company
	}
	if p.Entity != nil {
		entity := *p.Entity
		cp.Entity = &entity
	}
	return &cp
}

// ============================================================
// Receipts (append-only)
// ============================================================

func (s *Store) CreateReceipt(ctx context.Context, receipt *domain.Receipt) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyReceipt(receipt)
	s.receipts[receipt.ID] = cp
	s.receiptOrder = append(s.receiptOrder, receipt.ID)
	return copyReceipt(cp), nil
}

func (s *Store) GetReceipt(ctx context.Context, receiptID string) (*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, ok := s.receipts[receiptID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "receipt", ID: receiptID}
	}
	return copyReceipt(receipt), nil
}

func (s *Store) ListReceipts(ctx context.Context, accountID string, page, pageSize int) ([]domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.Receipt
	for _, id := range s.receiptOrder {
		if r := s.receipts[id]; r.AccountID == accountID {
			owned = append(owned, r)
		}
	}
	// Newest first.
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].IssuedAt.After(owned[j].IssuedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(owned) {
		return []domain.Receipt{}, nil
	}
	end := start + pageSize
	if end > len(owned) {
		end = len(owned)
	}

	out := make([]domain.Receipt, 0, end-start)
	for _, r := range owned[start:end] {
		out = append(out, *copyReceipt(r))
	}
	return out, nil
}

func (s *Store) CountReceipts(ctx context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.receipts {
		if r.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func copyReceipt(r *domain.Receipt) *domain.Receipt {
	cp := *r
	cp.Items = append([]domain.LineItem(nil), r.Items...)
	return &cp
}

// ============================================================
// Calculations
// ============================================================

func (s *Store) SaveCalculation(ctx context.Context, calc *domain.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calculations[calc.AccountID] = append(s.calculations[calc.AccountID], *calc)
	return nil
}

func (s *Store) ListCalculations(ctx context.Context, accountID string, calcType domain.CalculationType, limit int) ([]domain.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.calculations[accountID]
	out := make([]domain.Calculation, 0, limit)
	// Newest first: walk the slice backwards.
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if calcType != "" && all[i].Type != calcType {
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) CountCalculations(ctx context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.calculations[accountID]), nil
}

// ============================================================
// Content
// ============================================================

// SeedTips loads editorial content, used at startup for the dev
// backend and by tests.
func (s *Store) SeedTips(tips []domain.FinancialTip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range tips {
		cp := tips[i]
		s.tips[cp.ID] = &cp
	}
}

func (s *Store) ListTips(ctx context.Context, category string, limit int) ([]domain.FinancialTip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.FinancialTip
	for _, tip := range s.tips {
		if !tip.Published {
			continue
		}
		if category != "" && tip.Category != category {
			continue
		}
		out = append(out, *tip)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].PublishedAt != nil {
			ti = *out[i].PublishedAt
		}
		if out[j].PublishedAt != nil {
			tj = *out[j].PublishedAt
		}
		return ti.After(tj)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.FinancialTip{}
	}
	return out, nil
}

func (s *Store) GetTipBySlug(ctx context.Context, slug string) (*domain.FinancialTip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tip := range s.tips {
		if tip.Slug == slug && tip.Published {
			cp := *tip
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "tip", ID: slug}
}

func (s *Store) IncrementTipViews(ctx context.Context, tipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, ok := s.tips[tipID]
	if !ok {
		return &domain.ErrNotFound{Resource: "tip", ID: tipID}
	}
	tip.ViewsCount++
	return nil
}

func (s *Store) UpsertNewsletterSignup(ctx context.Context, signup *domain.NewsletterSignup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *signup
	cp.Email = strings.ToLower(cp.Email)
	s.signups[cp.Email] = &cp
	return nil
}

func (s *Store) GetNewsletterSignup(ctx context.Context, email string) (*domain.NewsletterSignup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	signup, ok := s.signups[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *signup
	return &cp, nil
}
