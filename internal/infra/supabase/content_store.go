package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Content — tables "financial_tips" and "newsletter_signups"
// ============================================================

type tipRow struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	ImageURL    string     `json:"image_url"`
	Published   bool       `json:"published"`
	ViewsCount  int        `json:"views_count"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
}

func (r *tipRow) toDomain() domain.FinancialTip {
	return domain.FinancialTip{
		ID:          r.ID,
		Title:       r.Title,
		Slug:        r.Slug,
		Summary:     r.Summary,
		Content:     r.Content,
		Category:    r.Category,
		Tags:        r.Tags,
		ImageURL:    r.ImageURL,
		Published:   r.Published,
		ViewsCount:  r.ViewsCount,
		CreatedAt:   r.CreatedAt,
		PublishedAt: r.PublishedAt,
	}
}

// ListTips returns published tips, newest first.
func (c *Client) ListTips(ctx context.Context, category string, limit int) ([]domain.FinancialTip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTips")
	defer span.End()

	var tips []domain.FinancialTip
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("financial_tips?published=is.true&order=published_at.desc&limit=%d", limit)
		if category != "" {
			path += fmt.Sprintf("&category=eq.%s", url.QueryEscape(category))
		}
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			tips = []domain.FinancialTip{}
			return nil
		}

		var rows []tipRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode tips: %w", err)
		}
		tips = make([]domain.FinancialTip, 0, len(rows))
		for i := range rows {
			tips = append(tips, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tips, nil
}

// GetTipBySlug fetches one published tip.
func (c *Client) GetTipBySlug(ctx context.Context, slug string) (*domain.FinancialTip, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTipBySlug")
	defer span.End()
	span.SetAttributes(attribute.String("tip.slug", slug))

	var tip *domain.FinancialTip
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("financial_tips?slug=eq.%s&published=is.true&limit=1", url.QueryEscape(slug))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "tip", ID: slug})
		}

		var rows []tipRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode tip: %w", err)
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "tip", ID: slug})
		}
		t := rows[0].toDomain()
		tip = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tip, nil
}

// IncrementTipViews bumps the view counter. Best effort; callers
// tolerate failure.
func (c *Client) IncrementTipViews(ctx context.Context, tipID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementTipViews")
	defer span.End()

	return c.execute(ctx, func() error {
		// Read-modify-write is acceptable for a non-critical counter.
		path := fmt.Sprintf("financial_tips?id=eq.%s&select=views_count&limit=1", url.QueryEscape(tipID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "tip", ID: tipID})
		}
		var rows []struct {
			ViewsCount int `json:"views_count"`
		}
		if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
			return fmt.Errorf("decode tip views: %w", err)
		}

		_, err = c.doPatch(ctx,
			fmt.Sprintf("financial_tips?id=eq.%s", url.QueryEscape(tipID)),
			map[string]any{"views_count": rows[0].ViewsCount + 1},
		)
		return err
	})
}

type signupRow struct {
	Email          string     `json:"email"`
	Subscribed     bool       `json:"subscribed"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}

// GetNewsletterSignup fetches a signup row by email. Unknown emails
// return (nil, nil).
func (c *Client) GetNewsletterSignup(ctx context.Context, email string) (*domain.NewsletterSignup, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetNewsletterSignup")
	defer span.End()

	var signup *domain.NewsletterSignup
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("newsletter_signups?email=eq.%s&limit=1", url.QueryEscape(strings.ToLower(email)))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if emptyResult(body) {
			return nil
		}

		var rows []signupRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode signup: %w", err)
		}
		if len(rows) > 0 {
			signup = &domain.NewsletterSignup{
				Email:          rows[0].Email,
				Subscribed:     rows[0].Subscribed,
				SubscribedAt:   rows[0].SubscribedAt,
				UnsubscribedAt: rows[0].UnsubscribedAt,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return signup, nil
}

// UpsertNewsletterSignup inserts or updates a signup keyed by email.
func (c *Client) UpsertNewsletterSignup(ctx context.Context, signup *domain.NewsletterSignup) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertNewsletterSignup")
	defer span.End()

	row := map[string]any{
		"email":         strings.ToLower(signup.Email),
		"subscribed":    signup.Subscribed,
		"subscribed_at": signup.SubscribedAt.Format(time.RFC3339),
	}
	if signup.UnsubscribedAt != nil {
		row["unsubscribed_at"] = signup.UnsubscribedAt.Format(time.RFC3339)
	} else {
		row["unsubscribed_at"] = nil
	}

	return c.execute(ctx, func() error {
		existing, err := c.GetNewsletterSignup(ctx, signup.Email)
		if err != nil {
			return err
		}
		if existing == nil {
			_, err := c.doPost(ctx, "newsletter_signups", row)
			return err
		}
		_, err = c.doPatch(ctx,
			fmt.Sprintf("newsletter_signups?email=eq.%s", url.QueryEscape(strings.ToLower(signup.Email))),
			row,
		)
		return err
	})
}
