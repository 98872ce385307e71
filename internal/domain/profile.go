package domain

import "time"

// ============================================================
// Profiles — role-tagged variant over a common carrier
// ============================================================

// Profile is the role-discriminated profile payload attached 1:1 to an
// account. Exactly one of Company / Entity is set, matching the
// account's role. Version backs optimistic concurrency on updates.
type Profile struct {
	AccountID string          `json:"account_id"`
	Role      Role            `json:"role"`
	Company   *CompanyProfile `json:"company,omitempty"`
	Entity    *EntityProfile  `json:"entity,omitempty"`
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CompanyProfile carries the branding used on issued receipts.
// Colors are hex strings of the form #RRGGBB.
type CompanyProfile struct {
	LegalName      string `json:"legal_name"`
	DisplayName    string `json:"display_name,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	Slogan         string `json:"slogan,omitempty"`
	Address        string `json:"address,omitempty"`
	TaxID          string `json:"tax_id,omitempty"`
	StampText      string `json:"stamp_text,omitempty"`
	StampImageURL  string `json:"stamp_image_url,omitempty"`
}

// EntityProfile is the individual-account counterpart.
type EntityProfile struct {
	DisplayName string `json:"display_name"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// UpdateProfileRequest is the body for PUT /v1/profile. Empty fields
// are left untouched. Version must match the stored profile or the
// update is rejected with a conflict.
type UpdateProfileRequest struct {
	Version int `json:"version"`

	// Company fields
	LegalName      string `json:"legalName,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	Slogan         string `json:"slogan,omitempty"`
	Address        string `json:"address,omitempty"`
	TaxID          string `json:"taxId,omitempty"`
	StampText      string `json:"stampText,omitempty"`
	StampImageURL  string `json:"stampImageUrl,omitempty"`
}
