package domain

import "time"

// ============================================================
// Content — financial tips blog & newsletter
// ============================================================

// FinancialTip is a published advice article.
type FinancialTip struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	Content     string     `json:"content"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Published   bool       `json:"published"`
	ViewsCount  int        `json:"views_count"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewsletterSignup tracks a newsletter subscription. Signups are kept
// after unsubscribe so a re-subscribe reactivates the same row.
type NewsletterSignup struct {
	Email          string     `json:"email"`
	Subscribed     bool       `json:"subscribed"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
}
