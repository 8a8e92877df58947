package models

import "time"

type LinkAttachment struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type ScheduledPost struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Content        string          `json:"content"`
	ScheduledTime  time.Time       `json:"scheduled_time"`
	Status         string          `json:"status"` // pending, published, cancelled, failed
	Link           *LinkAttachment `json:"link_data,omitempty"`
	AccessToken    string          `json:"access_token,omitempty"` // encrypted at rest, never exposed through the API
	ExternalPostID string          `json:"linkedin_post_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	FailedAt       *time.Time      `json:"failed_at,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
}

const (
	PostStatusPending   = "pending"
	PostStatusPublished = "published"
	PostStatusCancelled = "cancelled"
	PostStatusFailed    = "failed"
)

// Terminal reports whether the post reached a state that permits no
// further transition.
func (p *ScheduledPost) Terminal() bool {
	return p.Status != PostStatusPending
}
