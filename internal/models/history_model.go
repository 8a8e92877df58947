package models

import "time"

type PostStats struct {
	Likes       int `json:"likes"`
	Comments    int `json:"comments"`
	Shares      int `json:"shares"`
	Views       int `json:"views"`
	Impressions int `json:"impressions"`
}

type PostMetadata struct {
	Source   string `json:"source,omitempty"` // scheduled, immediate
	Tone     string `json:"tone,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type PublishedPost struct {
	ID             string       `json:"id"` // LinkedIn post id returned by the publish call
	OwnerID        string       `json:"owner_id"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
	Metadata       PostMetadata `json:"metadata"`
	Stats          PostStats    `json:"stats"`
	StatsUpdatedAt time.Time    `json:"stats_updated_at"`
}

type UserProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url,omitempty"`
}
