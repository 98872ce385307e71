package domain

import "time"

// ============================================================
// Accounts & roles
// ============================================================

// Role discriminates the two account kinds. It is fixed at
// registration; switching kinds means opening a new account.
type Role string

const (
	RoleCompany Role = "company"
	RoleEntity  Role = "entity"
)

// ValidRole reports whether r is one of the known account roles.
func ValidRole(r Role) bool {
	return r == RoleCompany || r == RoleEntity
}

// Account is the identity record behind every login.
// PasswordHash is never serialized and never logged.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Active       bool       `json:"active"`
	Verified     bool       `json:"verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// AccountContext is the identity reconstructed from a verified access
// token. All authenticated operations receive one; nothing identity
// related lives in process-wide state.
type AccountContext struct {
	AccountID string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccountStats aggregates per-account usage counters for the
// GET /v1/me/stats endpoint.
type AccountStats struct {
	TotalReceipts     int        `json:"totalReceipts"`
	TotalCalculations int        `json:"totalCalculations"`
	AccountCreated    time.Time  `json:"accountCreated"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	Verified          bool       `json:"verified"`
	Active            bool       `json:"active"`
}

// ============================================================
// Auth — request / response types
// ============================================================

// RegisterRequest is the body for POST /v1/auth/register.
// Company registrations must carry a LegalName.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LegalName   string `json:"legalName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Address     string `json:"address,omitempty"`
	TaxID       string `json:"taxId,omitempty"`
}

// RegisterResponse is the 201 body from POST /v1/auth/register.
type RegisterResponse struct {
	Account      *Account `json:"account"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int      `json:"expiresIn"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the 200 body from POST /v1/auth/login.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	AccountID    string `json:"accountId"`
	Role         Role   `json:"role"`
	Username     string `json:"username"`
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the body for PUT /v1/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
