package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/memory"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/service"

	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newAuthService(store *memory.Store) *service.AuthService {
	return service.NewAuthService(store, testSecret, time.Hour, 24*time.Hour, 8, observability.NewMetrics(), zap.NewNop())
}

func companyRegistration() *domain.RegisterRequest {
	return &domain.RegisterRequest{
		Email:     "contact@acme.example",
		Password:  "Sup3rSecret",
		Role:      domain.RoleCompany,
		LegalName: "ACME SARL",
	}
}

func TestRegister_CompanyCreatesAccountAndProfile(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)

	resp, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Account.Role != domain.RoleCompany {
		t.Errorf("expected company role, got %s", resp.Account.Role)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a token pair")
	}

	profile, err := store.GetProfile(context.Background(), resp.Account.ID)
	if err != nil {
		t.Fatalf("expected profile to exist, got %v", err)
	}
	if profile.Company == nil || profile.Company.LegalName != "ACME SARL" {
		t.Errorf("expected company profile with legal name, got %+v", profile)
	}
	if profile.Entity != nil {
		t.Error("company account must not carry an entity profile")
	}
	if profile.Version != 1 {
		t.Errorf("expected initial version 1, got %d", profile.Version)
	}
}

func TestRegister_EntityGetsEntityProfile(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)

	resp, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Email:    "person@mail.example",
		Password: "Sup3rSecret",
		Role:     domain.RoleEntity,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	profile, err := store.GetProfile(context.Background(), resp.Account.ID)
	if err != nil {
		t.Fatalf("expected profile to exist, got %v", err)
	}
	if profile.Entity == nil {
		t.Fatal("expected entity profile")
	}
	if profile.Company != nil {
		t.Error("entity account must not carry a company profile")
	}
}

func TestRegister_CompanyRequiresLegalName(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	req := companyRegistration()
	req.LegalName = ""
	_, err := svc.Register(context.Background(), req)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	if _, err := svc.Register(context.Background(), companyRegistration()); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	_, err := svc.Register(context.Background(), companyRegistration())

	var duplicate *domain.ErrDuplicateEmail
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestRegister_WeakPasswords(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	weak := []string{
		"Sh0rt",       // too short
		"alllower123", // no uppercase
		"ALLUPPER123", // no lowercase
		"NoDigitsHere",
	}
	for _, password := range weak {
		req := companyRegistration()
		req.Password = password
		_, err := svc.Register(context.Background(), req)

		var weakErr *domain.ErrWeakPassword
		if !errors.As(err, &weakErr) {
			t.Errorf("password %q: expected weak password error, got %v", password, err)
		}
	}
}

func TestLogin_Success(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "contact@acme.example",
		Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AccountID != reg.Account.ID {
		t.Errorf("expected account %s, got %s", reg.Account.ID, resp.AccountID)
	}

	account, err := store.GetAccountByID(context.Background(), reg.Account.ID)
	if err != nil {
		t.Fatalf("account fetch failed: %v", err)
	}
	if account.LastLoginAt == nil {
		t.Error("expected last login timestamp to be recorded")
	}
}

// Unknown email and wrong password must be indistinguishable.
func TestLogin_UniformInvalidCredentials(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	if _, err := svc.Register(context.Background(), companyRegistration()); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	_, errUnknown := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "nobody@acme.example", Password: "Sup3rSecret",
	})
	_, errWrongPw := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "contact@acme.example", Password: "WrongPassw0rd",
	})

	var u1, u2 *domain.ErrUnauthorized
	if !errors.As(errUnknown, &u1) || !errors.As(errWrongPw, &u2) {
		t.Fatalf("expected unauthorized for both, got %v / %v", errUnknown, errWrongPw)
	}
	if u1.Error() != u2.Error() {
		t.Errorf("error messages differ: %q vs %q", u1.Error(), u2.Error())
	}
}

func TestVerifyAccessToken_RoundTrip(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	actx, err := svc.VerifyAccessToken(reg.AccessToken)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if actx.AccountID != reg.Account.ID {
		t.Errorf("expected account %s, got %s", reg.Account.ID, actx.AccountID)
	}
	if actx.Role != domain.RoleCompany {
		t.Errorf("expected company role, got %s", actx.Role)
	}
}

func TestVerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if _, err := svc.VerifyAccessToken(reg.RefreshToken); err == nil {
		t.Error("refresh token must not pass access verification")
	}
}

func TestVerifyAccessToken_RejectsForgedToken(t *testing.T) {
	store := memory.NewStore()
	svc := newAuthService(store)
	other := service.NewAuthService(store, "another-secret", time.Hour, 24*time.Hour, 8, observability.NewMetrics(), zap.NewNop())

	reg, err := other.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	_, err = svc.VerifyAccessToken(reg.AccessToken)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized for token signed with another key, got %v", err)
	}
}

func TestVerifyAccessToken_RejectsExpiredToken(t *testing.T) {
	store := memory.NewStore()
	expired := service.NewAuthService(store, testSecret, -time.Minute, 24*time.Hour, 8, observability.NewMetrics(), zap.NewNop())

	reg, err := expired.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	svc := newAuthService(store)
	_, err = svc.VerifyAccessToken(reg.AccessToken)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: reg.RefreshToken})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a fresh token pair")
	}
	if _, err := svc.VerifyAccessToken(resp.AccessToken); err != nil {
		t.Errorf("refreshed access token must verify, got %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: reg.AccessToken}); err == nil {
		t.Error("access token must not be accepted for refresh")
	}
}

func TestChangePassword(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	err = svc.ChangePassword(context.Background(), reg.Account.ID, &domain.ChangePasswordRequest{
		CurrentPassword: "Sup3rSecret",
		NewPassword:     "An0therSecret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "contact@acme.example", Password: "Sup3rSecret",
	}); err == nil {
		t.Error("old password must stop working")
	}
	if _, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "contact@acme.example", Password: "An0therSecret",
	}); err != nil {
		t.Errorf("new password must work, got %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	err = svc.ChangePassword(context.Background(), reg.Account.ID, &domain.ChangePasswordRequest{
		CurrentPassword: "WrongPassw0rd",
		NewPassword:     "An0therSecret",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestDeactivateAccount_RefusesFurtherLogins(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	reg, err := svc.Register(context.Background(), companyRegistration())
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if err := svc.DeactivateAccount(context.Background(), reg.Account.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var unauthorized *domain.ErrUnauthorized
	_, err = svc.Login(context.Background(), &domain.LoginRequest{
		Email: "contact@acme.example", Password: "Sup3rSecret",
	})
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized login after deactivation, got %v", err)
	}

	// Outstanding refresh tokens stop working too.
	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: reg.RefreshToken})
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized refresh after deactivation, got %v", err)
	}
}

func TestDeactivateAccount_UnknownAccount(t *testing.T) {
	svc := newAuthService(memory.NewStore())

	err := svc.DeactivateAccount(context.Background(), "b2c1d0e9-0000-0000-0000-000000000000")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
