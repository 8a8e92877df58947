package transfer

import (
	"time"

	"linkpost/internal/models"
)

type SchedulePostRequest struct {
	Content         string `json:"content"`
	ScheduledTime   string `json:"scheduled_time"` // RFC 3339
	LinkURL         string `json:"link_url,omitempty"`
	LinkTitle       string `json:"link_title,omitempty"`
	LinkDescription string `json:"link_description,omitempty"`
}

// ScheduledPostView is the API shape of a scheduled post. It mirrors
// models.ScheduledPost minus the stored access token, which never leaves
// the process.
type ScheduledPostView struct {
	ID             string                 `json:"id"`
	OwnerID        string                 `json:"owner_id"`
	Content        string                 `json:"content"`
	ScheduledTime  time.Time              `json:"scheduled_time"`
	Status         string                 `json:"status"`
	Link           *models.LinkAttachment `json:"link_data,omitempty"`
	ExternalPostID string                 `json:"linkedin_post_id,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      *time.Time             `json:"updated_at,omitempty"`
	PublishedAt    *time.Time             `json:"published_at,omitempty"`
	CancelledAt    *time.Time             `json:"cancelled_at,omitempty"`
	FailedAt       *time.Time             `json:"failed_at,omitempty"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
}

func NewScheduledPostView(p *models.ScheduledPost) *ScheduledPostView {
	return &ScheduledPostView{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		Content:        p.Content,
		ScheduledTime:  p.ScheduledTime,
		Status:         p.Status,
		Link:           p.Link,
		ExternalPostID: p.ExternalPostID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		PublishedAt:    p.PublishedAt,
		CancelledAt:    p.CancelledAt,
		FailedAt:       p.FailedAt,
		FailureReason:  p.FailureReason,
	}
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type PostHistoryResult struct {
	Posts      []*models.PublishedPost `json:"posts"`
	Pagination Pagination              `json:"pagination"`
}

type PostStatsResult struct {
	PostID      string           `json:"post_id"`
	Stats       models.PostStats `json:"stats"`
	LastUpdated time.Time        `json:"last_updated"`
}
