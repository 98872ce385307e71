// Package service — AuthService handles registration, login, stateless
// JWT issuance/verification and password changes.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// dummyHash is compared against when the email is unknown, so the
// unknown-email and wrong-password paths take the same time and return
// the same error. bcrypt hash of an unguessable random string.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthService orchestrates authentication flows. Tokens are
// self-contained JWTs; there is no server-side session state.
type AuthService struct {
	store      port.Store
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	minPwLen   int
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.Store, jwtSecret string, accessTTL, refreshTTL time.Duration, minPasswordLength int, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	if minPasswordLength <= 0 {
		minPasswordLength = 8
	}
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		minPwLen:   minPasswordLength,
		metrics:    metrics,
		logger:     logger,
	}
}

// ============================================================
// Register — POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("register", time.Since(start)) }()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !emailPattern.MatchString(email) {
		return nil, &domain.ErrValidation{Field: "email", Message: "invalid email address"}
	}
	if !domain.ValidRole(req.Role) {
		return nil, &domain.ErrValidation{Field: "role", Message: "must be 'company' or 'entity'"}
	}
	if req.Role == domain.RoleCompany && strings.TrimSpace(req.LegalName) == "" {
		return nil, &domain.ErrValidation{Field: "legalName", Message: "required for company accounts"}
	}
	if err := s.checkPasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	// Duplicate check up front; the store's unique constraint is the
	// backstop for races.
	existing, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrDuplicateEmail{Email: email}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = usernameFromEmail(email)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		AccountID: created.ID,
		Role:      created.Role,
		Version:   1,
		UpdatedAt: now,
	}
	switch created.Role {
	case domain.RoleCompany:
		profile.Company = &domain.CompanyProfile{
			LegalName:   req.LegalName,
			DisplayName: req.DisplayName,
			Address:     req.Address,
			TaxID:       req.TaxID,
		}
	case domain.RoleEntity:
		displayName := req.DisplayName
		if displayName == "" {
			displayName = username
		}
		profile.Entity = &domain.EntityProfile{DisplayName: displayName}
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	access, refresh, err := s.signTokenPair(created.ID, created.Role)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrRegistration()
	s.logger.Info("account registered",
		zap.String("account_id", created.ID),
		zap.String("role", string(created.Role)),
	)

	return &domain.RegisterResponse{
		Account:      created,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller; a dummy bcrypt compare runs on the
// unknown-email path so timing does not leak account existence.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("login", time.Since(start)) }()

	email := strings.ToLower(strings.TrimSpace(req.Email))

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		s.metrics.IncrLogin("failure")
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.IncrLogin("failure")
		s.logger.Warn("login: failed password attempt", zap.String("account_id", account.ID))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	if !account.Active {
		s.metrics.IncrLogin("failure")
		s.logger.Warn("login: disabled account", zap.String("account_id", account.ID))
		return nil, &domain.ErrUnauthorized{Message: "account disabled"}
	}

	// Best effort; a failed timestamp update must not fail the login.
	_ = s.store.UpdateAccount(ctx, account.ID, map[string]any{
		"last_login_at": time.Now().UTC().Format(time.RFC3339),
	})

	access, refresh, err := s.signTokenPair(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrLogin("success")
	s.logger.Info("account logged in", zap.String("account_id", account.ID))

	return &domain.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		AccountID:    account.ID,
		Role:         account.Role,
		Username:     account.Username,
	}, nil
}

// ============================================================
// Refresh — POST /v1/auth/refresh
// ============================================================

// Refresh exchanges a valid refresh token for a new token pair.
// Revocation is expiry-based: there is nothing server-side to revoke.
func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	claims, err := s.parseToken(req.RefreshToken, "refresh")
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetAccountByID(ctx, claims.Sub)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil || !account.Active {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	access, refresh, err := s.signTokenPair(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		AccountID:    account.ID,
		Role:         account.Role,
		Username:     account.Username,
	}, nil
}

// ============================================================
// ChangePassword — PUT /v1/auth/password
// ============================================================

func (s *AuthService) ChangePassword(ctx context.Context, accountID string, req *domain.ChangePasswordRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		s.logger.Warn("password change: wrong current password", zap.String("account_id", accountID))
		return &domain.ErrUnauthorized{Message: "current password is incorrect"}
	}

	if err := s.checkPasswordPolicy(req.NewPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdateAccount(ctx, accountID, map[string]any{
		"password_hash": string(hash),
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	s.logger.Info("password changed", zap.String("account_id", accountID))
	return nil
}

// ============================================================
// DeactivateAccount — DELETE /v1/account
// ============================================================

// DeactivateAccount soft-disables the account. The row and its
// receipts are kept; login and token refresh refuse disabled accounts.
func (s *AuthService) DeactivateAccount(ctx context.Context, accountID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.DeactivateAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	account, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	if err := s.store.UpdateAccount(ctx, accountID, map[string]any{
		"active":     false,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	s.logger.Info("account deactivated", zap.String("account_id", accountID))
	return nil
}

// ============================================================
// Token issuance & verification (stateless)
// ============================================================

// JWTClaims represents the custom claims in issued tokens.
type JWTClaims struct {
	Sub  string      `json:"sub"`
	Role domain.Role `json:"role"`
	Type string      `json:"type"`
	jwt.RegisteredClaims
}

// VerifyAccessToken validates an access token and reconstructs the
// account context. Verification is read-only and safe under unlimited
// parallel calls.
func (s *AuthService) VerifyAccessToken(tokenString string) (*domain.AccountContext, error) {
	claims, err := s.parseToken(tokenString, "access")
	if err != nil {
		return nil, err
	}

	actx := &domain.AccountContext{
		AccountID: claims.Sub,
		Role:      claims.Role,
	}
	if claims.IssuedAt != nil {
		actx.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		actx.ExpiresAt = claims.ExpiresAt.Time
	}
	return actx, nil
}

func (s *AuthService) parseToken(tokenString, wantType string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "token expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != wantType {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}

	return claims, nil
}

func (s *AuthService) signTokenPair(accountID string, role domain.Role) (access, refresh string, err error) {
	access, err = s.signToken(accountID, role, "access", s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}
	refresh, err = s.signToken(accountID, role, "refresh", s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return access, refresh, nil
}

func (s *AuthService) signToken(accountID string, role domain.Role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  accountID,
		Role: role,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "finance-tips-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) checkPasswordPolicy(password string) error {
	if len(password) < s.minPwLen {
		return &domain.ErrWeakPassword{Reason: fmt.Sprintf("must be at least %d characters", s.minPwLen)}
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	if !hasUpper {
		return &domain.ErrWeakPassword{Reason: "must contain an uppercase letter"}
	}
	if !hasLower {
		return &domain.ErrWeakPassword{Reason: "must contain a lowercase letter"}
	}
	if !hasDigit {
		return &domain.ErrWeakPassword{Reason: "must contain a digit"}
	}
	return nil
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	// Suffix keeps usernames unique without a store round-trip.
	return local + "-" + uuid.New().String()[:8]
}
