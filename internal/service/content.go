package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var contentTracer = otel.Tracer("service/content")

// ContentService serves the financial-tips blog and newsletter
// signups. Tip lists are cached; a newsletter signup event is handed
// to the delivery collaborator out of band.
type ContentService struct {
	store   port.ContentStore
	cache   port.Cache[[]domain.FinancialTip]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewContentService creates the content service.
func NewContentService(store port.ContentStore, cache port.Cache[[]domain.FinancialTip], metrics *observability.Metrics, logger *zap.Logger) *ContentService {
	return &ContentService{store: store, cache: cache, metrics: metrics, logger: logger}
}

// ListTips returns published tips, optionally filtered by category.
func (s *ContentService) ListTips(ctx context.Context, category string, limit int) ([]domain.FinancialTip, error) {
	ctx, span := contentTracer.Start(ctx, "ContentService.ListTips")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("tips:%s:%d", category, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("tips")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("tips")

	tips, err := s.store.ListTips(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("tips fetch: %w", err)
	}
	s.cache.Set(cacheKey, tips)
	return tips, nil
}

// GetTipBySlug returns a single published tip and bumps its view
// counter. The counter update is best effort.
func (s *ContentService) GetTipBySlug(ctx context.Context, slug string) (*domain.FinancialTip, error) {
	ctx, span := contentTracer.Start(ctx, "ContentService.GetTipBySlug")
	defer span.End()

	tip, err := s.store.GetTipBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.store.IncrementTipViews(ctx, tip.ID); err != nil {
		s.logger.Warn("tip view increment failed", zap.String("tip_id", tip.ID), zap.Error(err))
	}
	return tip, nil
}

// SubscribeNewsletter records a signup. Subscribing an address that
// already signed up (even one that unsubscribed) reactivates it.
func (s *ContentService) SubscribeNewsletter(ctx context.Context, email string) error {
	ctx, span := contentTracer.Start(ctx, "ContentService.SubscribeNewsletter")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !emailPattern.MatchString(email) {
		return &domain.ErrValidation{Field: "email", Message: "invalid email address"}
	}

	signup := &domain.NewsletterSignup{
		Email:        email,
		Subscribed:   true,
		SubscribedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertNewsletterSignup(ctx, signup); err != nil {
		return fmt.Errorf("newsletter signup: %w", err)
	}

	s.logger.Info("newsletter subscribed", zap.String("email", email))
	return nil
}

// UnsubscribeNewsletter deactivates a signup. Unknown addresses are
// reported as not found.
func (s *ContentService) UnsubscribeNewsletter(ctx context.Context, email string) error {
	ctx, span := contentTracer.Start(ctx, "ContentService.UnsubscribeNewsletter")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.store.GetNewsletterSignup(ctx, email)
	if err != nil {
		return err
	}
	if existing == nil {
		return &domain.ErrNotFound{Resource: "newsletter signup", ID: email}
	}

	now := time.Now().UTC()
	existing.Subscribed = false
	existing.UnsubscribedAt = &now
	if err := s.store.UpsertNewsletterSignup(ctx, existing); err != nil {
		return fmt.Errorf("newsletter unsubscribe: %w", err)
	}

	s.logger.Info("newsletter unsubscribed", zap.String("email", email))
	return nil
}
