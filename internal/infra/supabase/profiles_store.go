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
// Profiles — table "profiles"
// ============================================================
//
// One flat row per account. The role column decides which fields are
// meaningful; the mapper rebuilds the role-tagged domain.Profile.

type profileRow struct {
	AccountID      string    `json:"account_id"`
	Role           string    `json:"role"`
	LegalName      string    `json:"legal_name"`
	DisplayName    string    `json:"display_name"`
	LogoURL        string    `json:"logo_url"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	Slogan         string    `json:"slogan"`
	Address        string    `json:"address"`
	TaxID          string    `json:"tax_id"`
	StampText      string    `json:"stamp_text"`
	StampImageURL  string    `json:"stamp_image_url"`
	Version        int       `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r *profileRow) toDomain() *domain.Profile {
	p := &domain.Profile{
		AccountID: r.AccountID,
		Role:      domain.Role(r.Role),
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}
	switch p.Role {
	case domain.RoleCompany:
		p.Company = &domain.CompanyProfile{
			LegalName:      r.LegalName,
			DisplayName:    r.DisplayName,
			LogoURL:        r.LogoURL,
			PrimaryColor:   r.PrimaryColor,
			SecondaryColor: r.SecondaryColor,
			Slogan:         r.Slogan,
			Address:        r.Address,
			TaxID:          r.TaxID,
			StampText:      r.StampText,
			StampImageURL:  r.StampImageURL,
		}
	case domain.RoleEntity:
		p.Entity = &domain.EntityProfile{
			DisplayName: r.DisplayName,
			LogoURL:     r.LogoURL,
		}
	}
	return p
}

// CreateProfile inserts the profile row created at registration.
func (c *Client) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", profile.AccountID))

	row := map[string]any{
		"account_id": profile.AccountID,
		"role":       string(profile.Role),
		"version":    profile.Version,
		"updated_at": profile.UpdatedAt.Format(time.RFC3339),
	}
	if profile.Company != nil {
		row["legal_name"] = profile.Company.LegalName
		row["display_name"] = profile.Company.DisplayName
		row["logo_url"] = profile.Company.LogoURL
		row["primary_color"] = profile.Company.PrimaryColor
		row["secondary_color"] = profile.Company.SecondaryColor
		row["slogan"] = profile.Company.Slogan
		row["address"] = profile.Company.Address
		row["tax_id"] = profile.Company.TaxID
		row["stamp_text"] = profile.Company.StampText
		row["stamp_image_url"] = profile.Company.StampImageURL
	}
	if profile.Entity != nil {
		row["display_name"] = profile.Entity.DisplayName
		row["logo_url"] = profile.Entity.LogoURL
	}

	return c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "profiles", row)
		return err
	})
}

// GetProfile fetches the profile attached to an account.
func (c *Client) GetProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var profile *domain.Profile
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("profiles?account_id=eq.%s&limit=1", url.QueryEscape(accountID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: accountID})
		}

		var rows []profileRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: accountID})
		}
		profile = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies updates only when the stored version still
// equals expectedVersion. The version filter on the PATCH makes the
// check-and-increment a single conditional write: zero updated rows
// means another writer got there first.
func (c *Client) UpdateProfile(ctx context.Context, accountID string, expectedVersion int, updates map[string]any) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID),
		attribute.Int("profile.expected_version", expectedVersion),
	)

	patch := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		patch[k] = v
	}
	patch["version"] = expectedVersion + 1

	var profile *domain.Profile
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("profiles?account_id=eq.%s&version=eq.%d",
			url.QueryEscape(accountID), expectedVersion)
		body, err := c.doPatch(ctx, path, patch)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			// Distinguish a stale version from a missing profile.
			if _, getErr := c.GetProfile(ctx, accountID); getErr != nil {
				var nf *domain.ErrNotFound
				if errors.As(getErr, &nf) {
					return resilience.Permanent(getErr)
				}
				return getErr
			}
			return resilience.Permanent(&domain.ErrConflict{Message: "profile was modified concurrently, re-read and retry"})
		}

		var rows []profileRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode updated profile: %w", err)
		}
		profile = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
