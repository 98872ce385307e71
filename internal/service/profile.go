package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var profileTracer = otel.Tracer("service/profile")

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ProfileService reads and updates role-tagged profiles.
type ProfileService struct {
	store   port.Store
	cache   port.Cache[*domain.Profile]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewProfileService creates the profile service.
func NewProfileService(store port.Store, cache port.Cache[*domain.Profile], metrics *observability.Metrics, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: store, cache: cache, metrics: metrics, logger: logger}
}

// GetProfile returns the authenticated account's profile.
func (s *ProfileService) GetProfile(ctx context.Context, actx *domain.AccountContext) (*domain.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", actx.AccountID))

	cacheKey := "profile:" + actx.AccountID
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("profile")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("profile")

	profile, err := s.store.GetProfile(ctx, actx.AccountID)
	if err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}
	s.cache.Set(cacheKey, profile)
	return profile, nil
}

// UpdateProfile applies a partial update to the caller's own profile.
// Branding fields are only valid on company profiles; updates carrying
// them against an entity profile are refused. The store applies the
// update only when the version still matches, so two concurrent edits
// never silently lose one write — the stale writer gets a conflict.
func (s *ProfileService) UpdateProfile(ctx context.Context, actx *domain.AccountContext, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", actx.AccountID))

	current, err := s.store.GetProfile(ctx, actx.AccountID)
	if err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}
	if current.Role != actx.Role {
		// A role mismatch between token and stored profile means the
		// caller is not entitled to this profile variant.
		return nil, &domain.ErrForbidden{Action: "update profile of a different role"}
	}

	updates, err := buildProfileUpdates(actx.Role, req)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	expectedVersion := req.Version
	if expectedVersion == 0 {
		expectedVersion = current.Version
	}

	updated, err := s.store.UpdateProfile(ctx, actx.AccountID, expectedVersion, updates)
	if err != nil {
		return nil, err
	}

	s.cache.Delete("profile:" + actx.AccountID)
	s.logger.Info("profile updated",
		zap.String("account_id", actx.AccountID),
		zap.Int("version", updated.Version),
	)
	return updated, nil
}

// GetAccountStats aggregates per-account usage counters. The three
// lookups are independent and run concurrently.
func (s *ProfileService) GetAccountStats(ctx context.Context, actx *domain.AccountContext) (*domain.AccountStats, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileService.GetAccountStats")
	defer span.End()

	var (
		account      *domain.Account
		receipts     int
		calculations int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.store.GetAccountByID(gCtx, actx.AccountID)
		if err != nil {
			return fmt.Errorf("account fetch: %w", err)
		}
		if a == nil {
			return &domain.ErrNotFound{Resource: "account", ID: actx.AccountID}
		}
		account = a
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountReceipts(gCtx, actx.AccountID)
		if err != nil {
			return fmt.Errorf("receipts count: %w", err)
		}
		receipts = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountCalculations(gCtx, actx.AccountID)
		if err != nil {
			return fmt.Errorf("calculations count: %w", err)
		}
		calculations = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.AccountStats{
		TotalReceipts:     receipts,
		TotalCalculations: calculations,
		AccountCreated:    account.CreatedAt,
		LastLogin:         account.LastLoginAt,
		Verified:          account.Verified,
		Active:            account.Active,
	}, nil
}

// buildProfileUpdates validates the request against the caller's role
// and returns the column updates to apply.
func buildProfileUpdates(role domain.Role, req *domain.UpdateProfileRequest) (map[string]any, error) {
	updates := map[string]any{}

	companyOnly := map[string]string{
		"legal_name":      req.LegalName,
		"primary_color":   req.PrimaryColor,
		"secondary_color": req.SecondaryColor,
		"slogan":          req.Slogan,
		"address":         req.Address,
		"tax_id":          req.TaxID,
		"stamp_text":      req.StampText,
		"stamp_image_url": req.StampImageURL,
	}
	for column, value := range companyOnly {
		if value == "" {
			continue
		}
		if role != domain.RoleCompany {
			return nil, &domain.ErrForbidden{Action: "set company branding on an entity profile"}
		}
		updates[column] = value
	}

	if req.PrimaryColor != "" && !hexColorPattern.MatchString(req.PrimaryColor) {
		return nil, &domain.ErrValidation{Field: "primaryColor", Message: "must be a hex color like #2D6A9F"}
	}
	if req.SecondaryColor != "" && !hexColorPattern.MatchString(req.SecondaryColor) {
		return nil, &domain.ErrValidation{Field: "secondaryColor", Message: "must be a hex color like #85B6D1"}
	}

	if req.DisplayName != "" {
		updates["display_name"] = req.DisplayName
	}
	if req.LogoURL != "" {
		updates["logo_url"] = req.LogoURL
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return updates, nil
}
