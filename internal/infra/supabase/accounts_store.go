package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Accounts — table "accounts"
// ============================================================

// accountRow maps the accounts table to the domain.
type accountRow struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Role         string     `json:"role"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone"`
	Active       bool       `json:"active"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

func (r *accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Phone:        r.Phone,
		Active:       r.Active,
		Verified:     r.Verified,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLoginAt:  r.LastLoginAt,
	}
}

// CreateAccount inserts a new account. A unique index on email makes
// PostgREST answer 409 for duplicates, which surfaces as
// domain.ErrDuplicateEmail.
func (c *Client) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.role", string(account.Role)))

	row := map[string]any{
		"id":            account.ID,
		"email":         account.Email,
		"username":      account.Username,
		"password_hash": account.PasswordHash,
		"role":          string(account.Role),
		"first_name":    account.FirstName,
		"last_name":     account.LastName,
		"phone":         account.Phone,
		"active":        account.Active,
		"verified":      account.Verified,
		"created_at":    account.CreatedAt.Format(time.RFC3339),
		"updated_at":    account.UpdatedAt.Format(time.RFC3339),
	}

	var created *domain.Account
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "accounts", row)
		if err != nil {
			var pe *postError
			if errors.As(err, &pe) && pe.isConflict() {
				return resilience.Permanent(&domain.ErrDuplicateEmail{Email: account.Email})
			}
			return err
		}

		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode created account: %w", err)
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

// GetAccountByID fetches one account by primary key.
func (c *Client) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccountByID")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var account *domain.Account
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("accounts?id=eq.%s&limit=1", url.QueryEscape(accountID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "account", ID: accountID})
		}

		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode account: %w", err)
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "account", ID: accountID})
		}
		account = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccountByEmail fetches an account by email. Unknown emails return
// (nil, nil) so the auth service can apply its uniform
// invalid-credentials handling without branching on error types.
func (c *Client) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccountByEmail")
	defer span.End()

	var account *domain.Account
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("accounts?email=eq.%s&limit=1", url.QueryEscape(strings.ToLower(email)))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return nil
		}

		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode account: %w", err)
		}
		if len(rows) > 0 {
			account = rows[0].toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount applies a partial column update to one account.
func (c *Client) UpdateAccount(ctx context.Context, accountID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return c.execute(ctx, func() error {
		path := fmt.Sprintf("accounts?id=eq.%s", url.QueryEscape(accountID))
		body, err := c.doPatch(ctx, path, updates)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "account", ID: accountID})
		}
		return nil
	})
}

// decodeCount reads the result of a select=count aggregate query,
// which PostgREST returns as [{"count": N}].
func decodeCount(body []byte) (int, error) {
	var rows []struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}
